package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for applicant event processing.
type Metrics struct {
	EventsProcessed   *prometheus.CounterVec
	EventsRejected    *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	EnrichmentErrors  prometheus.Counter
	ProcessingLatency prometheus.Histogram
}

// New registers and returns applicant metrics collectors.
func New() *Metrics {
	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_applicant_events_processed_total",
			Help: "Total inbound events applied, labeled by event kind",
		}, []string{"kind"}),
		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_applicant_events_rejected_total",
			Help: "Total inbound events rejected before applying, labeled by reason",
		}, []string{"reason"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_applicant_transitions_total",
			Help: "Total status transitions, labeled by classification",
		}, []string{"transition"}),
		EnrichmentErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_applicant_enrichment_errors_total",
			Help: "Total provider enrichment failures that fell back to event data",
		}),
		ProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_applicant_event_processing_latency_seconds",
			Help:    "Latency of inbound event processing in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementEventsProcessed(kind string) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementEventsRejected(reason string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTransitions(transition string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncrementEnrichmentErrors() {
	if m == nil {
		return
	}
	m.EnrichmentErrors.Inc()
}

func (m *Metrics) ObserveProcessingLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ProcessingLatency.Observe(seconds)
}
