// Package api exposes scans and signal queries over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/market-radar/internal/metrics"
	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/resilience"
	"github.com/sells-group/market-radar/internal/store"
)

// Scanner runs a signal scan.
type Scanner interface {
	Scan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error)
}

// Store is the persistence the handlers read and delete through.
type Store interface {
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	ListSignals(ctx context.Context, filter store.SignalFilter) ([]model.Signal, error)
	DeleteSignal(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
}

// BreakerStates reports provider circuit positions for /health.
type BreakerStates interface {
	States() map[string]resilience.State
}

const (
	defaultCompanyLimit = 20
	defaultGlobalLimit  = 50
	maxLimit            = 200
)

// Server holds the handler dependencies.
type Server struct {
	store    Store
	scanner  Scanner
	breakers BreakerStates
	metrics  *metrics.Metrics
	validate *validator.Validate
	scans    singleflight.Group

	lookbackDays int
	maxResults   int
	corsOrigins  []string
	scanTimeout  time.Duration
	now          func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithBreakers reports breaker states on /health.
func WithBreakers(b BreakerStates) Option {
	return func(s *Server) { s.breakers = b }
}

// WithMetrics serves the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithScanDefaults fills lookback and per-company cap when a request omits them.
func WithScanDefaults(lookbackDays, maxResults int) Option {
	return func(s *Server) {
		s.lookbackDays = lookbackDays
		s.maxResults = maxResults
	}
}

// WithCORSOrigins sets the allowed origins. Empty allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithScanTimeout bounds a single scan request.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Server) { s.scanTimeout = d }
}

// WithClock overrides time.Now for ranking.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server.
func New(st Store, sc Scanner, opts ...Option) *Server {
	s := &Server{
		store:        st,
		scanner:      sc,
		validate:     validator.New(),
		lookbackDays: 90,
		maxResults:   8,
		scanTimeout:  10 * time.Minute,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/signals", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Get("/companies/{id}", s.handleCompanySignals)
		r.Get("/global", s.handleGlobalSignals)
		r.Delete("/{id}", s.handleDeleteSignal)
	})
	return r
}
