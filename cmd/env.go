package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/cost"
	"github.com/sells-group/market-radar/internal/jobdesc"
	"github.com/sells-group/market-radar/internal/llm"
	"github.com/sells-group/market-radar/internal/metrics"
	"github.com/sells-group/market-radar/internal/radar"
	"github.com/sells-group/market-radar/internal/resilience"
	"github.com/sells-group/market-radar/internal/search"
	"github.com/sells-group/market-radar/internal/store"
	"github.com/sells-group/market-radar/pkg/jina"
	"github.com/sells-group/market-radar/pkg/job104"
	"github.com/sells-group/market-radar/pkg/tavily"
)

// radarEnv holds the store, clients and scanner shared by scan and serve.
type radarEnv struct {
	Store    store.Store
	Scanner  *radar.Scanner
	Breakers *resilience.Breakers
	Metrics  *metrics.Metrics
}

// Close releases resources held by the environment.
func (e *radarEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv validates config for mode and wires the scanner. A missing search
// key is not an error here; the scanner reports it when a scan starts.
func initEnv(ctx context.Context, mode string) (*radarEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	m.RegisterSignalCollector(st)
	breakers := resilience.NewBreakers(resilience.BreakerConfig{
		FailureThreshold: cfg.Search.CircuitFailureThreshold,
		Cooldown:         time.Duration(cfg.Search.CircuitResetSecs) * time.Second,
		OnChange: func(name string, from, to resilience.State) {
			zap.L().Warn("circuit breaker transition",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
			m.SetBreakerState(name, int(to))
		},
	})

	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	gwOpts := []search.Option{
		search.WithRateLimit(cfg.Search.RatePerSec),
		search.WithBreakers(breakers),
		search.WithMetrics(m),
	}
	if cfg.Tavily.Key != "" {
		tc := tavily.NewClient(cfg.Tavily.Key,
			tavily.WithBaseURL(cfg.Tavily.BaseURL),
			tavily.WithTimeout(time.Duration(cfg.Tavily.TimeoutSecs)*time.Second),
		)
		gwOpts = append(gwOpts, search.WithTavily(tc, cfg.Tavily.SearchDepth))
	}
	if cfg.Search.FallbackProvider == "jina" && cfg.Jina.Key != "" {
		gwOpts = append(gwOpts, search.WithJinaFallback(jinaClient))
	}
	gateway := search.NewGateway(gwOpts...)

	router, err := llm.NewRouterFromConfig(ctx, cfg, m)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init llm router")
	}

	jobs := jobdesc.NewChain(nil,
		jobdesc.NewJob104Scraper(job104.NewClient(job104.WithBaseURL(cfg.Job104.BaseURL))),
		jobdesc.NewJinaAdapter(jinaClient, breakers.Get("jina_reader")),
		jobdesc.NewLocalScraper(jobdesc.WithRobots()),
	)

	opts := []radar.Option{
		radar.WithAllowlist(cfg.Radar.Allowlist()),
		radar.WithJobFetcher(jobs),
		radar.WithCalculator(cost.NewCalculator(pricingRates())),
		radar.WithMetrics(m),
		radar.WithTranslateLocale(cfg.LLM.TranslateLocale),
		radar.WithDefaults(cfg.Radar.DefaultLookbackDays, cfg.Radar.DefaultMaxResults, cfg.Radar.MinCandidatePool),
	}
	if len(router.Providers()) > 0 {
		opts = append(opts, radar.WithGenerator(router))
	}

	return &radarEnv{
		Store:    st,
		Scanner:  radar.NewScanner(st, gateway, opts...),
		Breakers: breakers,
		Metrics:  m,
	}, nil
}

// pricingRates overlays configured prices on the defaults.
func pricingRates() cost.Rates {
	rates := cost.DefaultRates()
	if cfg.Pricing.TavilyPerCredit > 0 {
		rates.Tavily.PerCredit = cfg.Pricing.TavilyPerCredit
	}
	if cfg.Pricing.JinaPerMTok > 0 {
		rates.Jina.PerMTok = cfg.Pricing.JinaPerMTok
	}
	if cfg.Pricing.PerplexityPerQuery > 0 {
		rates.Perplexity.PerQuery = cfg.Pricing.PerplexityPerQuery
	}
	for model, p := range cfg.Pricing.Anthropic {
		rates.Anthropic[model] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	for model, p := range cfg.Pricing.Gemini {
		rates.Gemini[model] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return rates
}
