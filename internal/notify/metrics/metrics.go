package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for notification delivery.
type Metrics struct {
	Sent            *prometheus.CounterVec
	Failed          *prometheus.CounterVec
	Retried         prometheus.Counter
	DeliveryLatency prometheus.Histogram
}

// New registers and returns notification metrics collectors.
func New() *Metrics {
	return &Metrics{
		Sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_notifications_sent_total",
			Help: "Total notifications delivered, labeled by event",
		}, []string{"event"}),
		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_notifications_failed_total",
			Help: "Total notifications that exhausted all delivery attempts, labeled by event",
		}, []string{"event"}),
		Retried: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_notifications_retried_total",
			Help: "Total delivery attempts beyond the first",
		}),
		DeliveryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_notification_delivery_latency_seconds",
			Help:    "Latency of successful notification deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementSent(event string) {
	if m == nil {
		return
	}
	m.Sent.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrementFailed(event string) {
	if m == nil {
		return
	}
	m.Failed.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrementRetried() {
	if m == nil {
		return
	}
	m.Retried.Inc()
}

func (m *Metrics) ObserveDeliveryLatency(seconds float64) {
	if m == nil {
		return
	}
	m.DeliveryLatency.Observe(seconds)
}
