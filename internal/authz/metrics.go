package authz

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Metrics contains Prometheus metrics for identity authorization.
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
}

// NewMetrics creates authorization metrics registered with registerer. A nil
// registerer leaves the collectors unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "authz",
				Name:      "decisions_total",
				Help:      "Total number of identity authorization decisions",
			},
			[]string{"decision"},
		),
	}

	observability.MustRegister(registerer, m.decisionsTotal)
	return m
}

// RecordDecision records one decision: allowed, unknown_identity, missing_role or error.
func (m *Metrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(decision).Inc()
}
