package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"jukebox/internal/logging"
)

// DefaultRatio is the share of the container limit given to the Go heap.
// The rest covers SQLite, goroutine stacks and the tag reader's buffers.
const DefaultRatio = 0.85

// LimitResult describes what ConfigureLimit did.
type LimitResult struct {
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configured reports whether a Go memory limit is in effect.
func (r LimitResult) Configured() bool {
	return r.GoMemLimit > 0
}

// ConfigureLimit sets the Go memory limit from the environment. An explicit
// GOMEMLIMIT wins; otherwise MEMORY_LIMIT (bytes, typically from the
// Kubernetes Downward API) times MEMORY_RATIO is applied. Call it before
// the library scan starts.
func ConfigureLimit() LimitResult {
	return configureLimit(os.Getenv, debug.SetMemoryLimit)
}

func configureLimit(getenv func(string) string, setLimit func(int64) int64) LimitResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving the Go memory limit alone")
		return LimitResult{Source: "none"}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return LimitResult{Source: "none"}
	}

	ratio := DefaultRatio
	if v := getenv("MEMORY_RATIO"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", v, DefaultRatio)
		} else {
			ratio = parsed
		}
	}

	goLimit := int64(float64(containerLimit) * ratio)
	setLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)", FormatBytes(goLimit), ratio*100, FormatBytes(containerLimit))

	return LimitResult{
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// FormatBytes renders b with a binary unit suffix.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
