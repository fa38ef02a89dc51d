package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/metrics"
)

// MonitorConfig holds the water marks of a Monitor.
type MonitorConfig struct {
	// LimitBytes is the budget. Zero uses GOMEMLIMIT; with neither set the
	// monitor never reports pressure.
	LimitBytes        int64
	HighWaterMark     float64
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultMonitorConfig returns the default water marks.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and reports memory pressure. A nil *Monitor is
// valid and never reports pressure.
type Monitor struct {
	config MonitorConfig
	limit  int64
	sample func() uint64

	mu       sync.RWMutex
	current  uint64
	paused   bool
	resumeCh chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMonitor creates a monitor. It does not sample until Start or Check.
func NewMonitor(config MonitorConfig) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no limit configured, backpressure disabled")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		sample:   heapAlloc,
		resumeCh: make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples every CheckInterval until Stop.
func (m *Monitor) Start() {
	if m == nil || m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Check()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any Wait callers.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Check takes one sample and updates the paused state. Pausing starts at
// the critical mark and ends only once usage drops below the high mark.
func (m *Monitor) Check() {
	if m == nil || m.limit == 0 {
		return
	}
	alloc := m.sample()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing thumbnail generation", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming thumbnail generation", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumeCh)
		m.resumeCh = make(chan struct{})
	}
}

// Wait blocks while generation is paused. It returns ctx.Err() if ctx ends
// first; a stopped monitor releases waiters immediately.
func (m *Monitor) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resumeCh
	m.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-m.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether usage passed the critical mark and has not yet
// recovered.
func (m *Monitor) Paused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// ShouldThrottle reports whether usage is above the high water mark.
func (m *Monitor) ShouldThrottle() bool {
	if m == nil || m.limit == 0 {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) >= float64(m.limit)*m.config.HighWaterMark
}

// Usage returns the last sampled usage as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m == nil || m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
