package otp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Validation failure reasons used as metric labels and log fields.
const (
	reasonOK           = "ok"
	reasonMissing      = "missing"
	reasonPrefix       = "prefix"
	reasonStructure    = "structure"
	reasonAlgorithm    = "algorithm"
	reasonSignatureLen = "signature_length"
	reasonSignature    = "signature"
	reasonExpired      = "expired"
	reasonNotBefore    = "not_before"
	reasonRevoked      = "revoked"
	reasonScope        = "scope"
	reasonClaims       = "claims"
	reasonLedgerError  = "ledger_error"
)

// Validation statuses.
const (
	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"
)

const durationBucketsStart = 0.0001

// Metrics holds Prometheus metrics for bearer token validation.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// NewMetrics creates validation metrics registered with registerer. A nil
// registerer leaves the collectors unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	m := &Metrics{
		validationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "otp",
				Name:      "validation_total",
				Help:      "Total number of bearer token validations",
			},
			[]string{"status", "reason"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "otp",
				Name:      "validation_duration_seconds",
				Help:      "Bearer token validation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(durationBucketsStart, 4, 8),
			},
			[]string{"status"},
		),
	}

	observability.MustRegister(registerer, m.validationTotal, m.validationDuration)
	return m
}

// RecordValidation records one validation outcome.
func (m *Metrics) RecordValidation(status, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(status, reason).Inc()
	m.validationDuration.WithLabelValues(status).Observe(duration.Seconds())
}
