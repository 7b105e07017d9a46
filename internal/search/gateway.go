package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-radar/internal/metrics"
	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/resilience"
	"github.com/sells-group/market-radar/pkg/jina"
	"github.com/sells-group/market-radar/pkg/tavily"
)

// ProviderGateway searches Tavily, optionally falling back to Jina Search
// when Tavily fails or is not configured. Each provider sits behind its own
// circuit breaker and a shared rate limit. Nothing is retried.
type ProviderGateway struct {
	tavily   tavily.Client
	depth    string
	jina     jina.Client
	limiter  *rate.Limiter
	breakers *resilience.Breakers
	metrics  *metrics.Metrics
}

// Option configures a ProviderGateway.
type Option func(*ProviderGateway)

// WithTavily sets the primary provider and its search depth.
func WithTavily(c tavily.Client, depth string) Option {
	return func(g *ProviderGateway) {
		g.tavily = c
		g.depth = depth
	}
}

// WithJinaFallback sets the fallback provider.
func WithJinaFallback(c jina.Client) Option {
	return func(g *ProviderGateway) {
		g.jina = c
	}
}

// WithRateLimit caps outbound searches per second. Zero or less disables it.
func WithRateLimit(perSec float64) Option {
	return func(g *ProviderGateway) {
		if perSec <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithBreakers shares a breaker registry with the gateway.
func WithBreakers(b *resilience.Breakers) Option {
	return func(g *ProviderGateway) {
		g.breakers = b
	}
}

// WithMetrics records per-query outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *ProviderGateway) {
		g.metrics = m
	}
}

// NewGateway creates a gateway. With no provider options it is not Ready.
func NewGateway(opts ...Option) *ProviderGateway {
	g := &ProviderGateway{depth: "advanced"}
	for _, o := range opts {
		o(g)
	}
	if g.breakers == nil {
		g.breakers = resilience.NewBreakers(resilience.BreakerConfig{})
	}
	return g
}

// Ready implements Gateway.
func (g *ProviderGateway) Ready() error {
	if g.tavily == nil && g.jina == nil {
		return ErrNotConfigured
	}
	return nil
}

// Breakers exposes the breaker registry for health reporting.
func (g *ProviderGateway) Breakers() *resilience.Breakers {
	return g.breakers
}

// Search implements Gateway.
func (g *ProviderGateway) Search(ctx context.Context, q Query, lookbackDays int) (*Response, error) {
	if err := g.Ready(); err != nil {
		return nil, err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "search: rate limit wait")
		}
	}

	var primaryErr error
	if g.tavily != nil {
		resp, err := g.searchTavily(ctx, q, lookbackDays)
		if err == nil {
			return resp, nil
		}
		primaryErr = err
		if g.jina == nil || ctx.Err() != nil {
			return nil, err
		}
		zap.L().Warn("search: tavily failed, using jina fallback",
			zap.String("query", q.Label),
			zap.Error(err),
		)
	}

	resp, err := g.searchJina(ctx, q)
	if err != nil {
		if primaryErr != nil {
			return nil, errors.Join(primaryErr, err)
		}
		return nil, err
	}
	return resp, nil
}

func (g *ProviderGateway) searchTavily(ctx context.Context, q Query, lookbackDays int) (*Response, error) {
	start := time.Now()
	raw, err := resilience.Call(ctx, g.breakers.Get("tavily"), func(ctx context.Context) (*tavily.SearchResponse, error) {
		resp, err := g.tavily.Search(ctx, tavily.SearchRequest{
			Query:          q.Text,
			SearchDepth:    g.depth,
			Topic:          q.Topic,
			MaxResults:     q.MaxResults,
			TimeRange:      tavily.TimeRange(lookbackDays),
			IncludeDomains: q.IncludeDomains,
		})
		var apiErr *tavily.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.StatusError("tavily", apiErr.StatusCode, []byte(apiErr.Body))
		}
		return resp, err
	})
	elapsed := time.Since(start)
	if err != nil {
		g.metrics.ObserveSearch(ProviderTavily, "error", elapsed)
		return nil, eris.Wrapf(err, "search: tavily query %s", q.Label)
	}
	g.metrics.ObserveSearch(ProviderTavily, "ok", elapsed)

	latency := int(elapsed.Milliseconds())
	out := &Response{
		Provider:  ProviderTavily,
		LatencyMs: latency,
		Credits:   tavily.Credits(g.depth),
	}
	for _, r := range raw.Results {
		out.Candidates = append(out.Candidates, model.Candidate{
			Title:       strings.TrimSpace(r.Title),
			Snippet:     strings.TrimSpace(r.Content),
			URL:         strings.TrimSpace(r.URL),
			SourceHost:  SourceHost(r.URL),
			PublishedAt: ParsePublished(r.PublishedDate),
			Provider:    ProviderTavily,
			LatencyMs:   latency,
			QueryLabel:  q.Label,
		})
	}
	return out, nil
}

func (g *ProviderGateway) searchJina(ctx context.Context, q Query) (*Response, error) {
	var opts []jina.SearchOption
	if len(q.IncludeDomains) > 0 {
		opts = append(opts, jina.WithSiteFilter(q.IncludeDomains...))
	}

	start := time.Now()
	raw, err := resilience.Call(ctx, g.breakers.Get("jina"), func(ctx context.Context) (*jina.SearchResponse, error) {
		resp, err := g.jina.Search(ctx, q.Text, opts...)
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.StatusError("jina", apiErr.StatusCode, []byte(apiErr.Body))
		}
		return resp, err
	})
	elapsed := time.Since(start)
	if err != nil {
		g.metrics.ObserveSearch(ProviderJina, "error", elapsed)
		return nil, eris.Wrapf(err, "search: jina query %s", q.Label)
	}
	g.metrics.ObserveSearch(ProviderJina, "ok", elapsed)

	latency := int(elapsed.Milliseconds())
	out := &Response{Provider: ProviderJina, LatencyMs: latency}
	for _, r := range raw.Data {
		out.Tokens += r.Usage.Tokens
		if q.MaxResults > 0 && len(out.Candidates) >= q.MaxResults {
			continue
		}
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		out.Candidates = append(out.Candidates, model.Candidate{
			Title:        strings.TrimSpace(r.Title),
			Snippet:      strings.TrimSpace(snippet),
			URL:          strings.TrimSpace(r.URL),
			SourceHost:   SourceHost(r.URL),
			PublishedAt:  ParsePublished(r.PublishedTime),
			Provider:     ProviderJina,
			LatencyMs:    latency,
			FallbackUsed: g.tavily != nil,
			QueryLabel:   q.Label,
		})
	}
	return out, nil
}
