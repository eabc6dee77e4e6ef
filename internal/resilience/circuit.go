// Package resilience guards provider calls with per-provider circuit
// breakers. It never retries: a rejected call fails fast and the caller
// falls back.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the state of a breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen lets a single trial call through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Config controls breaker behavior.
type Config struct {
	// FailureThreshold is the number of consecutive outage failures that
	// opens the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a trial call.
	ResetTimeout time.Duration

	// ShouldTrip decides which errors count as failures. Defaults to
	// IsOutage, so a rejected API key does not open the circuit for every
	// session sharing the provider.
	ShouldTrip func(err error) bool

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the defaults used when config values are unset.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     60 * time.Second,
	}
}

// FromCircuitConfig converts config values to a Config.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) Config {
	cfg := DefaultConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}

// Breaker is a circuit breaker for one provider.
type Breaker struct {
	name string
	cfg  Config

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a breaker. Zero config values take defaults.
func NewBreaker(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsOutage
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the provider name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal is like Execute but preserves a return value.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, reporting HalfOpen once an open circuit's
// reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.transition(Closed)
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.transition(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrCircuitOpen, "resilience: %s", b.name)
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		b.failures = 0
		b.transition(Closed)
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.transition(Open)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// Breakers holds one breaker per provider.
type Breakers struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	cfg      Config
}

// NewBreakers creates a registry sharing one config.
func NewBreakers(cfg Config) *Breakers {
	return &Breakers{breakers: make(map[string]*Breaker), cfg: cfg}
}

// Get returns the breaker for name, creating it on first use.
func (r *Breakers) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.cfg)
		r.breakers[name] = b
	}
	return b
}

// States returns a snapshot of every breaker's state.
func (r *Breakers) States() map[string]State {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(list))
	for _, b := range list {
		out[b.name] = b.State()
	}
	return out
}
