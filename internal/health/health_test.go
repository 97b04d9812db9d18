package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		register func(c *Checker)
		expected Status
	}{
		{name: "no checks", register: func(*Checker) {}, expected: StatusHealthy},
		{
			name: "all healthy",
			register: func(c *Checker) {
				c.RegisterCheck("ledger", ok, true)
				c.RegisterCheck("vault", ok, false)
			},
			expected: StatusHealthy,
		},
		{
			name: "non critical failure degrades",
			register: func(c *Checker) {
				c.RegisterCheck("ledger", ok, true)
				c.RegisterCheck("vault", failing, false)
			},
			expected: StatusDegraded,
		},
		{
			name: "critical failure",
			register: func(c *Checker) {
				c.RegisterCheck("ledger", failing, true)
				c.RegisterCheck("vault", failing, false)
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("1.0.0")
			tt.register(c)

			resp := c.Readiness(context.Background())
			assert.Equal(t, tt.expected, resp.Status)
			assert.Len(t, resp.Checks, len(c.CheckNames()))
		})
	}
}

func TestChecker_ReadinessTimeout(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.0.0", WithTimeout(20*time.Millisecond))
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	resp := c.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["slow"].Message, "deadline")
}

func TestChecker_Draining(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.0.0")
	c.RegisterCheck("ledger", ok, true)
	c.SetDraining(true)

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c.SetDraining(false)
	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test", prometheus.NewRegistry())
	c := NewChecker("1.2.3", WithMetrics(metrics))
	c.RegisterCheck("ledger", failing, true)

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, StatusHealthy, health.Status)
	assert.Equal(t, "1.2.3", health.Version)

	rec = httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get(HeaderContentType))

	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "connection refused", ready.Checks["ledger"].Message)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.checksTotal.WithLabelValues("liveness")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.checkStatus.WithLabelValues("ledger")))
}
