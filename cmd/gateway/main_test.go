package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/certgw/internal/auth/otp/otptest"
	"github.com/vyrodovalexey/certgw/internal/config"
	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/eiam"
	"github.com/vyrodovalexey/certgw/internal/observability"
	"github.com/vyrodovalexey/certgw/internal/revocation"
	"github.com/vyrodovalexey/certgw/internal/server"
	"github.com/vyrodovalexey/certgw/internal/vault"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		expected string
	}{
		{name: "unset", expected: "default"},
		{name: "set", envValue: "value", setEnv: true, expected: "value"},
		{name: "empty", envValue: "", setEnv: true, expected: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv("CERTGW_TEST_ENV", tt.envValue)
			}
			assert.Equal(t, tt.expected, getEnvOrDefault("CERTGW_TEST_ENV", "default"))
		})
	}
}

func TestApplyLogOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	applyLogOverrides(cfg, cliFlags{logLevel: "debug"})
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, observability.DefaultLogConfig().Format, cfg.Observability.Logging.Format)
}

func TestInitVault_Disabled(t *testing.T) {
	t.Parallel()

	client, err := initVault(context.Background(), &vault.Config{}, observability.NopLogger(), nil)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func testConfig(t *testing.T, publicKey string, generationURL string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Port = 18443
	cfg.Server.MetricsPort = 0
	cfg.OTP.PublicKey = publicKey
	cfg.EIAM.URL = "http://eiam.invalid"
	cfg.Downstream.GenerationURL = generationURL
	cfg.Downstream.ManagementURL = generationURL
	cfg.Audit.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestInitApplication_EndToEnd(t *testing.T) {
	t.Parallel()

	issuer := otptest.NewIssuer(t)
	var generated atomic.Int32
	generation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		generated.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/api/v1/covidcertificate/test"))
		assert.Equal(t, "U2", r.Header.Get("X-User-Ext-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uvci":"urn:uvci:01:CH:TEST"}`))
	}))
	t.Cleanup(generation.Close)

	cfg := testConfig(t, issuer.PublicKeyBase64(t), generation.URL+"/")
	app, err := initApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.close(observability.NopLogger()) })

	handler := app.server.Handler()

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, server.RouteTest, strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body server.PolicyError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, domain.CodeMissingBearer, body.ErrorCode)
	})

	t.Run("bearer token", func(t *testing.T) {
		token := issuer.Mint(t, otptest.ValidClaims("U2", "IDP2", "J1"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, server.RouteTest, strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"uvci":"urn:uvci:01:CH:TEST"}`, rec.Body.String())
		assert.Equal(t, int32(1), generated.Load())
	})

	t.Run("readiness includes ledger", func(t *testing.T) {
		assert.Contains(t, app.healthChecker.CheckNames(), "revocation")
		assert.NotNil(t, app.metrics)
	})
}

func TestInitApplication_MetricsDisabled(t *testing.T) {
	t.Parallel()

	issuer := otptest.NewIssuer(t)
	cfg := testConfig(t, issuer.PublicKeyBase64(t), "http://generation.invalid/")
	cfg.Observability.Metrics.Enabled = false

	app, err := initApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.close(observability.NopLogger()) })
	assert.Nil(t, app.metrics)
}

func TestInitApplication_InvalidKeyReturnsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
	}{
		{name: "not base64", key: "not-a-key"},
		{name: "base64 without a key", key: "bm90LWEta2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t, tt.key, "http://generation.invalid/")

			var (
				app *application
				err error
			)
			require.NotPanics(t, func() {
				app, err = initApplication(context.Background(), cfg, observability.NopLogger())
			})
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), "OTP verification key")
		})
	}
}

func TestInitApplication_FailureReleasesLedger(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	issuer := otptest.NewIssuer(t)

	cfg := testConfig(t, issuer.PublicKeyBase64(t), "http://generation.invalid/")
	cfg.Revocation = &revocation.Config{
		Backend: revocation.BackendRedis,
		Redis:   &revocation.RedisConfig{URL: "redis://" + mr.Addr()},
	}
	cfg.EIAM.TLS = &eiam.TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing-ca.pem")}

	var (
		app *application
		err error
	)
	require.NotPanics(t, func() {
		app, err = initApplication(context.Background(), cfg, observability.NopLogger())
	})
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "identity directory client")

	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
