package downstream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Metrics contains Prometheus metrics for downstream calls.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
}

// NewMetrics creates downstream metrics registered with registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "downstream",
				Name:      "requests_total",
				Help:      "Total number of downstream calls by target and status",
			},
			[]string{"target", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "downstream",
				Name:      "request_duration_seconds",
				Help:      "Downstream call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "downstream",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
	}

	observability.MustRegister(registerer, m.requestsTotal, m.requestDuration, m.breakerTransitions)
	return m
}

// RecordRequest records one call. status is an HTTP status, "error" or "open".
func (m *Metrics) RecordRequest(target, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(target, status).Inc()
	m.requestDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordTransition records a breaker state change.
func (m *Metrics) RecordTransition(name, from, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.WithLabelValues(name, from, to).Inc()
}
