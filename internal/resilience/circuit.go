// Package resilience guards calls to external search and language-model
// providers. It never retries: a rejected or failed call is reported to the
// caller, which decides whether to skip it.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the position of a breaker.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets one probe through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a breaker rejects a call.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig controls when a breaker opens and for how long.
type BreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens the
	// breaker. Default 5.
	FailureThreshold int
	// Cooldown is how long the breaker stays open. Default 30s.
	Cooldown time.Duration
	// Trips decides whether an error counts as a failure. Nil counts only
	// transient errors, so a 4xx from a provider never opens the breaker.
	Trips func(err error) bool
	// OnChange observes transitions.
	OnChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker for one provider.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trips == nil {
		cfg.Trips = IsTransient
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Call runs fn unless the breaker is open.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, eris.Wrapf(ErrOpen, "resilience: %s", b.name)
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

// State returns the breaker position, reporting half-open once an open
// breaker's cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return false
	}
	b.move(StateHalfOpen)
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Trips(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.move(StateClosed)
		}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.move(StateOpen)
	}
}

func (b *Breaker) move(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(b.name, from, to)
	}
}

// Breakers hands out one breaker per provider name.
type Breakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakers creates an empty registry sharing cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*Breaker)}
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

// States snapshots every breaker for health reporting.
func (r *Breakers) States() map[string]State {
	r.mu.Lock()
	named := make(map[string]*Breaker, len(r.breakers))
	for name, b := range r.breakers {
		named[name] = b
	}
	r.mu.Unlock()

	out := make(map[string]State, len(named))
	for name, b := range named {
		out[name] = b.State()
	}
	return out
}
