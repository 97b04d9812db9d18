package revocation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Metrics contains Prometheus metrics for ledger reads.
type Metrics struct {
	readsTotal   *prometheus.CounterVec
	readDuration *prometheus.HistogramVec
	revokedIDs   *prometheus.GaugeVec
}

// NewMetrics creates ledger metrics registered with registerer. A nil
// registerer leaves the collectors unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	m := &Metrics{
		readsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "revocation",
				Name:      "reads_total",
				Help:      "Total number of revocation ledger reads",
			},
			[]string{"backend", "status"},
		),
		readDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "revocation",
				Name:      "read_duration_seconds",
				Help:      "Duration of revocation ledger reads in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend"},
		),
		revokedIDs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "revocation",
				Name:      "revoked_ids",
				Help:      "Number of revoked token ids seen by the last read",
			},
			[]string{"backend"},
		),
	}

	observability.MustRegister(registerer, m.readsTotal, m.readDuration, m.revokedIDs)
	return m
}

type instrumentedLedger struct {
	next    Ledger
	backend string
	metrics *Metrics
}

// Instrument wraps next so that every read is counted and timed.
func Instrument(next Ledger, backend string, metrics *Metrics) Ledger {
	if metrics == nil {
		return next
	}
	return &instrumentedLedger{next: next, backend: backend, metrics: metrics}
}

func (l *instrumentedLedger) CurrentRevokedIDs(ctx context.Context) (Set, error) {
	start := time.Now()
	ids, err := l.next.CurrentRevokedIDs(ctx)
	l.metrics.readDuration.WithLabelValues(l.backend).Observe(time.Since(start).Seconds())

	if err != nil {
		l.metrics.readsTotal.WithLabelValues(l.backend, "error").Inc()
		return nil, err
	}

	l.metrics.readsTotal.WithLabelValues(l.backend, "success").Inc()
	l.metrics.revokedIDs.WithLabelValues(l.backend).Set(float64(len(ids)))
	return ids, nil
}
