package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/resilience"
)

func zapNop() *zap.Logger { return zap.NewNop() }

type fakeBreakers map[string]resilience.State

func (f fakeBreakers) States() map[string]resilience.State { return f }

type fakeSessions int

func (f fakeSessions) Len() int { return int(f) }

func TestCollector_Window(t *testing.T) {
	m := NewMetrics()
	m.RecordExtraction("claude", "success", time.Second)
	m.RecordExtraction("claude", "success", time.Second)
	m.RecordExtraction("gemini", "fallback", time.Second)
	m.RecordExtraction("manual", "manual", time.Millisecond)
	m.RecordRejection("too_large")

	c := NewCollector(m, fakeBreakers{"claude": resilience.Closed}, fakeSessions(4))
	snap := c.Collect()

	assert.Equal(t, 2, snap.Success)
	assert.Equal(t, 1, snap.Fallback)
	assert.Equal(t, 1, snap.Manual)
	assert.Equal(t, 1, snap.Rejected)
	assert.Equal(t, 3, snap.Remote)
	assert.InDelta(t, 1.0/3.0, snap.FallbackRate, 1e-9)
	assert.Empty(t, snap.OpenCircuits)
	assert.Equal(t, 4, snap.Sessions)

	m.RecordExtraction("claude", "fallback", time.Second)
	snap = c.Collect()
	assert.Equal(t, 0, snap.Success)
	assert.Equal(t, 1, snap.Fallback)
	assert.InDelta(t, 1.0, snap.FallbackRate, 1e-9)
}

func TestCollector_OpenCircuits(t *testing.T) {
	m := NewMetrics()
	// gemini opened and recovered inside the window.
	m.BreakerStateChanged("gemini", resilience.Closed, resilience.Open)
	m.BreakerStateChanged("gemini", resilience.Open, resilience.HalfOpen)

	c := NewCollector(m, fakeBreakers{"claude": resilience.Open, "gemini": resilience.Closed}, nil)
	snap := c.Collect()
	assert.Equal(t, []string{"claude", "gemini"}, snap.OpenCircuits)

	snap = c.Collect()
	assert.Equal(t, []string{"claude"}, snap.OpenCircuits)
}
