package metrics

import (
	"time"

	"desktop-thumbnailer/internal/logging"
)

// DirStats describes one cache subdirectory.
type DirStats struct {
	Bytes   int64
	Entries int
}

// Stats holds the current cache statistics keyed by subdirectory
// ("normal", "large", "fail").
type Stats struct {
	Dirs map[string]DirStats
}

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
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
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	total := 0
	for dir, s := range stats.Dirs {
		ThumbnailCacheSize.WithLabelValues(dir).Set(float64(s.Bytes))
		ThumbnailCacheCount.WithLabelValues(dir).Set(float64(s.Entries))
		total += s.Entries
	}

	logging.Debug("Metrics collected: %d cache entries across %d directories", total, len(stats.Dirs))
}
