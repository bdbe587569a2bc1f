package metrics

import (
	"os"
	"sync"
	"time"

	"jukebox/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	Tracks        int
	Playlists     int
	ActiveStreams int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector. dbPath may be empty when
// the scan cache is disabled.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.dbPath != "" {
		if info, err := os.Stat(c.dbPath); err == nil {
			DBSizeBytes.Set(float64(info.Size()))
		}
	}

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LibraryTracks.Set(float64(stats.Tracks))
	LibraryPlaylists.Set(float64(stats.Playlists))

	logging.Debug("Metrics collected: tracks=%d, playlists=%d, active streams=%d",
		stats.Tracks, stats.Playlists, stats.ActiveStreams)
}
