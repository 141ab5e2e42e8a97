package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for screening operations.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	ProviderErrors  prometheus.Counter
	CacheHits       prometheus.Counter
	ProviderLatency prometheus.Histogram
}

// New registers and returns screening metrics collectors.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_screening_decisions_total",
			Help: "Total screening decisions, labeled by decision",
		}, []string{"decision"}),
		ProviderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_screening_provider_errors_total",
			Help: "Total screening provider failures that fell back to manual review",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_screening_cache_hits_total",
			Help: "Total assessments served from the Redis cache",
		}),
		ProviderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_screening_provider_latency_seconds",
			Help:    "Latency of screening provider assessments in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementProviderErrors() {
	if m == nil {
		return
	}
	m.ProviderErrors.Inc()
}

func (m *Metrics) IncrementCacheHits() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) ObserveProviderLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ProviderLatency.Observe(seconds)
}
