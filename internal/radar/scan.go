// Package radar turns web-search results about tracked companies into
// verified, scored business signals.
package radar

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/cost"
	"github.com/sells-group/market-radar/internal/metrics"
	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/search"
)

// ErrSearchNotConfigured aborts a scan before any company is processed.
var ErrSearchNotConfigured = search.ErrNotConfigured

const (
	defaultLookbackDays = 90
	defaultMaxResults   = 8
	defaultMinPool      = 12
)

// Store is the persistence the scanner needs.
type Store interface {
	GetCompanies(ctx context.Context, ids []int64) ([]model.Company, error)
	UpsertSignal(ctx context.Context, sig *model.Signal) (int64, error)
}

// JobFetcher fetches a job description for a posting URL. It returns "" when
// nothing could be fetched.
type JobFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Scanner runs signal scans.
type Scanner struct {
	store      Store
	gateway    search.Gateway
	lex        *Lexicon
	allowlist  []string
	classifier *Classifier
	filter     *Filter
	gen        Generator
	locale     string
	jobs       JobFetcher
	calc       *cost.Calculator
	metrics    *metrics.Metrics

	lookbackDays int
	maxResults   int
	minPool      int
	now          func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLexicon replaces the embedded lexicon.
func WithLexicon(lex *Lexicon) Option {
	return func(s *Scanner) { s.lex = lex }
}

// WithAllowlist restricts accepted sources. Empty admits every host.
func WithAllowlist(hosts []string) Option {
	return func(s *Scanner) { s.allowlist = hosts }
}

// WithGenerator enables translation of Latin-dominant summaries.
func WithGenerator(g Generator) Option {
	return func(s *Scanner) { s.gen = g }
}

// WithTranslateLocale picks the translation prompt for a target locale such
// as zh-TW or ja. Locales without a prompt use the default.
func WithTranslateLocale(locale string) Option {
	return func(s *Scanner) { s.locale = locale }
}

// WithJobFetcher enables job-description enrichment of hiring signals.
func WithJobFetcher(f JobFetcher) Option {
	return func(s *Scanner) { s.jobs = f }
}

// WithCalculator enables cost estimates on scan results.
func WithCalculator(c *cost.Calculator) Option {
	return func(s *Scanner) { s.calc = c }
}

// WithMetrics records candidate outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithDefaults sets the lookback, per-company cap and minimum candidate pool
// used when a request leaves them at zero.
func WithDefaults(lookbackDays, maxResults, minPool int) Option {
	return func(s *Scanner) {
		if lookbackDays > 0 {
			s.lookbackDays = lookbackDays
		}
		if maxResults > 0 {
			s.maxResults = maxResults
		}
		if minPool > 0 {
			s.minPool = minPool
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// NewScanner creates a Scanner over st and gw.
func NewScanner(st Store, gw search.Gateway, opts ...Option) *Scanner {
	s := &Scanner{
		store:        st,
		gateway:      gw,
		lookbackDays: defaultLookbackDays,
		maxResults:   defaultMaxResults,
		minPool:      defaultMinPool,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.lex == nil {
		s.lex = DefaultLexicon()
	}
	if s.calc == nil {
		s.calc = cost.NewCalculator(cost.Rates{})
	}
	s.classifier = NewClassifier(s.lex)
	s.filter = NewFilter(s.lex, s.allowlist)
	return s
}

// Scan searches, verifies and stores signals for each requested company in
// turn. No matching companies is a zero-count success. A missing search
// provider fails the scan before any work; a failed query only skips that
// query.
func (s *Scanner) Scan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	res := &model.ScanResult{
		JobID:      uuid.NewString(),
		Rejections: make(map[string]int),
		StartedAt:  s.now().UTC(),
	}
	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = s.lookbackDays
	}
	maxResults := req.MaxResultsPerCompany
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	companies, err := s.store.GetCompanies(ctx, req.CompanyIDs)
	if err != nil {
		return nil, eris.Wrap(err, "radar: load companies")
	}
	if len(companies) == 0 {
		res.FinishedAt = s.now().UTC()
		return res, nil
	}
	if err := s.gateway.Ready(); err != nil {
		return nil, eris.Wrap(err, "radar: scan")
	}

	log := zap.L().With(zap.String("job_id", res.JobID))
	log.Info("radar: scan started",
		zap.Int("companies", len(companies)),
		zap.Int("lookback_days", lookback),
		zap.Int("max_results", maxResults),
	)

	for _, co := range companies {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "radar: scan interrupted")
		}
		n, err := s.scanCompany(ctx, co, lookback, maxResults, res)
		if err != nil {
			return res, err
		}
		res.CompaniesProcessed++
		log.Info("radar: company scanned",
			zap.Int64("company_id", co.ID),
			zap.String("company", co.Name),
			zap.Int("accepted", n),
		)
	}

	res.FinishedAt = s.now().UTC()
	s.metrics.ObserveScan(res.FinishedAt.Sub(res.StartedAt))
	log.Info("radar: scan finished",
		zap.Int("records", res.RecordsCreatedOrUpdated),
		zap.Float64("estimated_cost_usd", res.EstimatedCostUSD),
	)
	return res, nil
}

func (s *Scanner) scanCompany(ctx context.Context, co model.Company, lookback, maxResults int, res *model.ScanResult) (int, error) {
	aliases := ResolveAliases(co.Name, s.lex)
	plan := PlanQueries(aliases, s.lex.Keywords(co.Segment), co.Region, maxResults, s.lex)

	pool, err := search.Collect(ctx, s.gateway, plan, lookback, search.PoolCap(maxResults, s.minPool))
	if err != nil {
		return 0, eris.Wrapf(err, "radar: collect company %d", co.ID)
	}
	res.EstimatedCostUSD += s.calc.Tavily(pool.Credits) + s.calc.Jina(pool.Tokens)

	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -lookback)
	accepted := 0
	for _, c := range s.lex.presort(pool.Candidates) {
		if accepted >= maxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return accepted, eris.Wrap(err, "radar: scan interrupted")
		}

		sig, reason := s.evaluate(ctx, co, c, aliases, cutoff, now, res)
		if reason != "" {
			res.Rejections[reason]++
			s.metrics.Rejected(reason)
			zap.L().Debug("radar: candidate rejected",
				zap.Int64("company_id", co.ID),
				zap.String("url", c.URL),
				zap.String("reason", reason),
			)
			continue
		}

		id, err := s.store.UpsertSignal(ctx, sig)
		if err != nil {
			return accepted, eris.Wrapf(err, "radar: upsert signal for company %d", co.ID)
		}
		sig.ID = id
		accepted++
		res.RecordsCreatedOrUpdated++
		s.metrics.Accepted(string(sig.Type))
	}
	return accepted, nil
}

// evaluate classifies and filters one candidate and builds its signal. A
// non-empty reason means the candidate was rejected.
func (s *Scanner) evaluate(ctx context.Context, co model.Company, c model.Candidate, aliases Aliases, cutoff, now time.Time, res *model.ScanResult) (*model.Signal, string) {
	typ := s.classifier.Classify(c.Combined(), c.URL)
	if reason := s.filter.Check(c, typ, aliases, cutoff); reason != "" {
		return nil, reason
	}

	var summary string
	if typ == model.SignalHiring {
		jd := ""
		if s.jobs != nil && IsHiringJobURL(c.URL) {
			jd = s.jobs.Fetch(ctx, c.URL)
		}
		summary = s.lex.BuildHiringSummary(c.Title, c.Snippet, c.URL, jd)
		if !IsHiringSummaryUsable(summary) {
			return nil, ReasonSummaryUnusable
		}
	} else {
		summary = s.lex.CleanSummary(strings.TrimSpace(c.Title + ". " + c.Snippet))
		if !IsSummaryUsable(summary) {
			return nil, ReasonSummaryUnusable
		}
	}

	summary, gen := s.translateSummary(ctx, summary)
	if gen != nil {
		res.EstimatedCostUSD += s.calc.LLM(gen.Provider, gen.Model, gen.InputTokens, gen.OutputTokens)
	}

	sig := &model.Signal{
		CompanyID:          co.ID,
		Type:               typ,
		Strength:           s.classifier.Strength(typ, c.PublishedAt, now),
		Summary:            truncateRunes(summary, model.MaxSummaryLen),
		EvidenceURL:        c.URL,
		SourceName:         candidateHost(c),
		SourcePublishedAt:  c.PublishedAt,
		SearchProvider:     c.Provider,
		SearchLatencyMs:    c.LatencyMs,
		SearchFallbackUsed: c.FallbackUsed,
		FetchedAt:          now,
	}
	if c.PublishedAt != nil {
		p := c.PublishedAt.UTC()
		day := time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, time.UTC)
		sig.EventDate = &day
	}
	return sig, ""
}
