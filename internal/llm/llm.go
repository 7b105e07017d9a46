// Package llm routes text generation across an ordered list of providers.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/metrics"
)

// ErrNoProviders is returned when no provider is configured.
var ErrNoProviders = eris.New("llm: no providers configured")

// Result is one successful generation.
type Result struct {
	Text         string
	Provider     string
	Model        string
	LatencyMs    int
	InputTokens  int
	OutputTokens int
	FallbackUsed bool
}

// Provider generates text for one backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, user string) (*Result, error)
}

// Router tries providers in order and returns the first non-empty result.
type Router struct {
	providers []Provider
	metrics   *metrics.Metrics
}

// NewRouter orders providers by names. Providers not named are dropped and
// names with no matching provider are skipped.
func NewRouter(order []string, m *metrics.Metrics, providers ...Provider) *Router {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[strings.ToUpper(p.Name())] = p
	}
	r := &Router{metrics: m}
	for _, name := range order {
		if p, ok := byName[strings.ToUpper(name)]; ok {
			r.providers = append(r.providers, p)
			delete(byName, strings.ToUpper(name))
		}
	}
	return r
}

// Providers lists the routed provider names in order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate asks each provider in turn. Errors and empty replies move on to
// the next provider; the last error is returned when all fail.
func (r *Router) Generate(ctx context.Context, system, user string) (*Result, error) {
	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for i, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "llm: generate")
		}

		start := time.Now()
		res, err := p.Generate(ctx, system, user)
		if err == nil && strings.TrimSpace(res.Text) == "" {
			err = eris.Errorf("llm: %s returned empty text", p.Name())
		}
		if err != nil {
			r.metrics.ObserveLLM(p.Name(), "error")
			zap.L().Debug("llm: provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		r.metrics.ObserveLLM(p.Name(), "ok")
		res.Provider = p.Name()
		res.LatencyMs = int(time.Since(start).Milliseconds())
		res.FallbackUsed = i > 0
		return res, nil
	}
	return nil, eris.Wrap(lastErr, "llm: all providers failed")
}
