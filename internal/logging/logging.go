package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel is the minimum severity that is written.
type LogLevel int

// Levels in increasing severity.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

var (
	threshold atomic.Int32
	fromEnv   sync.Once
)

// loadEnv applies DEBUG and LOG_LEVEL the first time the level is used.
// A truthy DEBUG takes precedence.
func loadEnv() {
	fromEnv.Do(func() {
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			threshold.Store(int32(LevelDebug))
			return
		}
		level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
		threshold.Store(int32(level))
	})
}

// ParseLevel maps a level name to a LogLevel. Unknown names yield
// LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	for level, n := range levelNames {
		if n == name {
			return LogLevel(level), true
		}
	}
	return LevelInfo, false
}

// SetLevel replaces the level taken from the environment.
func SetLevel(level LogLevel) {
	loadEnv()
	threshold.Store(int32(level))
}

// GetLevel returns the current level.
func GetLevel() LogLevel {
	loadEnv()
	return LogLevel(threshold.Load())
}

// IsDebugEnabled reports whether Debug output is written.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("unknown(%d)", int(l))
}

func logf(level LogLevel, format string, args ...any) {
	if GetLevel() > level {
		return
	}
	log.Printf("["+strings.ToUpper(level.String())+"] "+format, args...)
}

// Debug logs at debug level.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info logs at info level.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error logs at error level.
func Error(format string, args ...any) { logf(LevelError, format, args...) }
