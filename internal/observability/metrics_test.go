package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	m.RecordRequest(http.MethodPost, "/api/v1/covidcertificate/revoke", http.StatusForbidden, 10*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/api/v1/covidcertificate/revoke", http.StatusForbidden, 5*time.Millisecond)
	m.RecordRateLimitHit("/api/v1/covidcertificate/revoke")
	m.SetBuildInfo("1.0.0", "abc", "now")

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.requestsTotal.WithLabelValues(http.MethodPost, "/api/v1/covidcertificate/revoke", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHits.WithLabelValues("/api/v1/covidcertificate/revoke")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "certgw_http_requests_total")
	assert.Contains(t, rec.Body.String(), "certgw_build_info")
}

func TestMustRegister(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})

	assert.NotPanics(t, func() {
		MustRegister(registry, counter)
		MustRegister(registry, counter)
		MustRegister(nil, counter)
	})

	clash := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_total", Help: "other"})
	assert.Panics(t, func() { MustRegister(registry, clash) })
}

func TestTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(context.Background(), TracerConfig{ServiceName: "certgw"})
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(context.Background(), "op")
	defer span.End()

	ctx = ContextWithSpan(ctx, span)
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	assert.Contains(t, createSampler(1).Description(), "AlwaysOn")
	assert.Contains(t, createSampler(0).Description(), "AlwaysOff")
	assert.Contains(t, createSampler(0.5).Description(), "TraceIDRatioBased")
}
