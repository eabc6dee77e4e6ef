package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/sells-group/docextract/internal/resilience"
)

// MetricsSnapshot holds extraction health over the window since the previous
// collection.
type MetricsSnapshot struct {
	Success      int     `json:"success"`
	Fallback     int     `json:"fallback"`
	Manual       int     `json:"manual"`
	Rejected     int     `json:"rejected"`
	Remote       int     `json:"remote"`
	FallbackRate float64 `json:"fallback_rate"`

	// OpenCircuits lists providers whose circuit is open now or opened
	// during the window.
	OpenCircuits []string `json:"open_circuits,omitempty"`
	Sessions     int      `json:"sessions"`

	WindowStart time.Time `json:"window_start"`
	CollectedAt time.Time `json:"collected_at"`
}

// BreakerStates reports current circuit states.
type BreakerStates interface {
	States() map[string]resilience.State
}

// SessionCounter reports live sessions.
type SessionCounter interface {
	Len() int
}

// Collector turns cumulative tallies into per-window snapshots.
type Collector struct {
	metrics  *Metrics
	breakers BreakerStates
	sessions SessionCounter
	now      func() time.Time

	mu       sync.Mutex
	last     Tally
	lastTime time.Time
}

// NewCollector creates a collector. breakers and sessions may be nil.
func NewCollector(m *Metrics, breakers BreakerStates, sessions SessionCounter) *Collector {
	return &Collector{
		metrics:  m,
		breakers: breakers,
		sessions: sessions,
		now:      time.Now,
		lastTime: time.Now().UTC(),
	}
}

// Collect returns the snapshot for the window since the previous call.
func (c *Collector) Collect() *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.metrics.Tally()
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		Success:     cur.Success - c.last.Success,
		Fallback:    cur.Fallback - c.last.Fallback,
		Manual:      cur.Manual - c.last.Manual,
		Rejected:    cur.Rejected - c.last.Rejected,
		WindowStart: c.lastTime,
		CollectedAt: now,
	}
	c.last = cur
	c.lastTime = now

	snap.Remote = snap.Success + snap.Fallback
	if snap.Remote > 0 {
		snap.FallbackRate = float64(snap.Fallback) / float64(snap.Remote)
	}

	open := make(map[string]bool)
	for _, name := range c.metrics.drainOpened() {
		open[name] = true
	}
	if c.breakers != nil {
		for name, st := range c.breakers.States() {
			if st == resilience.Open {
				open[name] = true
			}
		}
	}
	for name := range open {
		snap.OpenCircuits = append(snap.OpenCircuits, name)
	}
	sort.Strings(snap.OpenCircuits)

	if c.sessions != nil {
		snap.Sessions = c.sessions.Len()
	}
	return snap
}
