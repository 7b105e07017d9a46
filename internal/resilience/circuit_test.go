package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = NewTransientError(errors.New("boom"), 503)

func fail(_ context.Context) (int, error) { return 0, errBoom }
func ok(_ context.Context) (int, error)   { return 1, nil }

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker("tavily", BreakerConfig{})

	v, err := Call(context.Background(), b, ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("tavily", BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = Call(context.Background(), b, fail)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		t.Error("fn must not run while open")
		return 0, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestBreaker_NonTransientDoesNotTrip(t *testing.T) {
	b := NewBreaker("tavily", BreakerConfig{FailureThreshold: 1})

	_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
		return 0, errors.New("tavily: unexpected status 401: bad key")
	})
	if b.State() != StateClosed {
		t.Errorf("expected closed after a non-transient error, got %s", b.State())
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker("tavily", BreakerConfig{FailureThreshold: 2})

	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, ok)
	_, _ = Call(context.Background(), b, fail)
	if b.State() != StateClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("jina", BreakerConfig{FailureThreshold: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(11 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after cool-down, got %s", b.State())
	}

	// A failed probe reopens.
	_, _ = Call(context.Background(), b, fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}

	now = now.Add(11 * time.Second)
	if _, err := Call(context.Background(), b, ok); err != nil {
		t.Fatalf("probe should run: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after good probe, got %s", b.State())
	}
}

func TestBreaker_OnChange(t *testing.T) {
	var transitions []string
	b := NewBreaker("tavily", BreakerConfig{
		FailureThreshold: 1,
		OnChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_, _ = Call(context.Background(), b, fail)
	if len(transitions) != 1 || transitions[0] != "tavily:closed->open" {
		t.Errorf("unexpected transitions %v", transitions)
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := NewBreaker("tavily", BreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = Call(context.Background(), b, fail)
				return
			}
			_, _ = Call(context.Background(), b, ok)
		}(i)
	}
	wg.Wait()
	_ = b.State()
}

func TestBreakers_GetAndStates(t *testing.T) {
	r := NewBreakers(BreakerConfig{FailureThreshold: 1})

	a := r.Get("tavily")
	if r.Get("tavily") != a {
		t.Error("expected the same breaker for the same name")
	}
	_, _ = Call(context.Background(), r.Get("jina"), fail)

	states := r.States()
	if states["tavily"] != StateClosed {
		t.Errorf("tavily: expected closed, got %s", states["tavily"])
	}
	if states["jina"] != StateOpen {
		t.Errorf("jina: expected open, got %s", states["jina"])
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
