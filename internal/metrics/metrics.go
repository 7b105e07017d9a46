// Package metrics holds the Prometheus instruments for scans, searches, and
// LLM calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const namespace = "radar"

var storedSignalsDesc = prometheus.NewDesc(
	namespace+"_stored_signals",
	"Signals currently stored, by type",
	[]string{"signal_type"},
	nil,
)

// SignalCounter reports stored signal counts keyed by type.
type SignalCounter interface {
	CountSignalsByType(ctx context.Context) (map[string]int, error)
}

// Metrics groups every instrument on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Candidates    *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Upserts       *prometheus.CounterVec
	SearchQueries *prometheus.CounterVec
	SearchLatency *prometheus.HistogramVec
	LLMRequests   *prometheus.CounterVec
	BreakerState  *prometheus.GaugeVec
	ScanDuration  prometheus.Histogram
}

// New creates and registers all instruments.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Search candidates evaluated, by outcome.",
		}, []string{"outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected candidates, by reason.",
		}, []string{"reason"}),
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_upserts_total",
			Help:      "Signals created or updated, by type.",
		}, []string{"signal_type"}),
		SearchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries issued, by provider and status.",
		}, []string{"provider", "status"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Search request latency, by provider.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM generation attempts, by provider and status.",
		}, []string{"provider", "status"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"name"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full scan.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	m.Registry.MustRegister(
		m.Candidates, m.Rejections, m.Upserts,
		m.SearchQueries, m.SearchLatency, m.LLMRequests,
		m.BreakerState, m.ScanDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterSignalCollector exposes stored signal counts, read on each scrape.
func (m *Metrics) RegisterSignalCollector(src SignalCounter) {
	if m == nil || src == nil {
		return
	}
	m.Registry.MustRegister(&signalCollector{src: src})
}

// Accepted counts a candidate that became a signal.
func (m *Metrics) Accepted(signalType string) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues("accepted").Inc()
	m.Upserts.WithLabelValues(signalType).Inc()
}

// Rejected counts a candidate dropped by a rule.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues("rejected").Inc()
	m.Rejections.WithLabelValues(reason).Inc()
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueries.WithLabelValues(provider, status).Inc()
	m.SearchLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveLLM records one generation attempt.
func (m *Metrics) ObserveLLM(provider, status string) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(provider, status).Inc()
}

// SetBreakerState records a breaker transition.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveScan records a completed scan.
func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(d.Seconds())
}

type signalCollector struct {
	src SignalCounter
}

func (c *signalCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storedSignalsDesc
}

func (c *signalCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.src.CountSignalsByType(context.Background())
	if err != nil {
		zap.L().Error("metrics: count stored signals", zap.Error(err))
		return
	}
	for typ, n := range counts {
		ch <- prometheus.MustNewConstMetric(storedSignalsDesc, prometheus.GaugeValue, float64(n), typ)
	}
}
