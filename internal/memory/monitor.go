package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

// MonitorConfig holds memory monitor settings.
type MonitorConfig struct {
	// Limit in bytes; 0 reads the current Go memory limit.
	Limit int64
	// PauseAt and ResumeAt are fractions of Limit.
	PauseAt  float64
	ResumeAt float64
	Interval time.Duration
}

// DefaultMonitorConfig returns the defaults used by the server.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PauseAt:  0.85,
		ResumeAt: 0.7,
		Interval: 2 * time.Second,
	}
}

// Monitor samples heap usage and pauses library scan workers while usage is
// above PauseAt, until it drops below ResumeAt. A nil *Monitor never
// pauses.
type Monitor struct {
	config MonitorConfig
	limit  int64
	read   func() uint64

	mu      sync.Mutex
	usage   float64
	paused  bool
	resumed chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor. Without a limit it never pauses.
func NewMonitor(config MonitorConfig) *Monitor {
	limit := config.Limit
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no limit configured, scan backpressure disabled")
	}

	return &Monitor{
		config:  config,
		limit:   limit,
		read:    heapAlloc,
		resumed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples memory in the background until Stop.
func (m *Monitor) Start() {
	if m == nil || m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) sample() {
	if m.limit == 0 {
		return
	}
	usage := float64(m.read()) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = usage

	switch {
	case !m.paused && usage >= m.config.PauseAt:
		logging.Warn("Memory at %.0f%% of limit, pausing library scan", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case m.paused && usage < m.config.ResumeAt:
		logging.Info("Memory at %.0f%% of limit, resuming library scan", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns ctx.Err() if ctx
// ends first and nil otherwise.
func (m *Monitor) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resumed := m.resumed
	m.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether scanning is currently paused.
func (m *Monitor) Paused() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
