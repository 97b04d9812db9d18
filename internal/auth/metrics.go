package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Resolution paths.
const (
	PathCertificate = "certificate"
	PathBearer      = "bearer"
)

// Metrics contains Prometheus metrics for authorization decisions.
type Metrics struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
}

// NewMetrics creates decider metrics registered with registerer. A nil
// registerer leaves the collectors unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	m := &Metrics{
		resolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "resolve_total",
				Help:      "Total number of authorization decisions by path and result",
			},
			[]string{"path", "result"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "resolve_duration_seconds",
				Help:      "Authorization decision duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}

	observability.MustRegister(registerer, m.resolveTotal, m.resolveDuration)
	return m
}

// RecordResolve records one decision. result is "authorized", a wire code,
// or "error".
func (m *Metrics) RecordResolve(path, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(path, result).Inc()
	m.resolveDuration.WithLabelValues(path).Observe(duration.Seconds())
}
