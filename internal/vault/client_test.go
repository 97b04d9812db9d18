package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "s.test-token"

// fakeVault serves a KV v2 mount named "secret" plus approle login and health.
func fakeVault(t *testing.T, secrets map[string]interface{}) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/auth/approle/login" && r.Method == http.MethodPut || r.URL.Path == "/v1/auth/approle/login" && r.Method == http.MethodPost:
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["role_id"] != "role" || body["secret_id"] != "secret" {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid role or secret id"}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"auth": map[string]interface{}{"client_token": testToken}})
		case r.URL.Path == "/v1/sys/health":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"initialized": true, "sealed": false, "standby": false,
				"version": "1.15.0", "cluster_name": "test",
			})
		default:
			if r.Header.Get("X-Vault-Token") != testToken {
				writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
				return
			}
			value, ok := secrets[r.URL.Path]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": value})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ReadField(t *testing.T) {
	t.Parallel()

	server := fakeVault(t, map[string]interface{}{
		"/v1/secret/data/certgw/otp": map[string]interface{}{
			"data":     map[string]interface{}{"publicKey": "PEM", "count": 3},
			"metadata": map[string]interface{}{"version": 1},
		},
		"/v1/secret/data/deleted": map[string]interface{}{
			"data":     nil,
			"metadata": map[string]interface{}{"version": 2},
		},
	})

	metrics := NewMetrics("test", prometheus.NewRegistry())
	client, err := New(context.Background(), &Config{Enabled: true, Address: server.URL, Token: testToken},
		WithMetrics(metrics))
	require.NoError(t, err)

	tests := []struct {
		name        string
		mount, path string
		field       string
		expected    string
		expectedErr error
	}{
		{name: "present", mount: "secret", path: "certgw/otp", field: "publicKey", expected: "PEM"},
		{name: "slashes trimmed", mount: "/secret/", path: "/certgw/otp", field: "publicKey", expected: "PEM"},
		{name: "missing field", mount: "secret", path: "certgw/otp", field: "privateKey", expectedErr: ErrFieldNotFound},
		{name: "non string field", mount: "secret", path: "certgw/otp", field: "count", expectedErr: ErrFieldNotFound},
		{name: "missing secret", mount: "secret", path: "nope", field: "publicKey", expectedErr: ErrSecretNotFound},
		{name: "deleted secret", mount: "secret", path: "deleted", field: "publicKey", expectedErr: ErrSecretNotFound},
		{name: "blank path", mount: "secret", path: "", field: "publicKey", expectedErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			value, err := client.ReadField(context.Background(), tt.mount, tt.path, tt.field)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("kv_read", "success")), 2.0)
}

func TestClient_PermissionDenied(t *testing.T) {
	t.Parallel()

	server := fakeVault(t, map[string]interface{}{})
	client, err := New(context.Background(), &Config{Enabled: true, Address: server.URL, Token: "wrong"})
	require.NoError(t, err)

	_, err = client.ReadField(context.Background(), "secret", "certgw/otp", "publicKey")
	require.Error(t, err)

	var vaultErr *VaultError
	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, "kv_read", vaultErr.Op)
}

func TestNew_AppRole(t *testing.T) {
	t.Parallel()

	server := fakeVault(t, map[string]interface{}{
		"/v1/secret/data/k": map[string]interface{}{"data": map[string]interface{}{"f": "v"}},
	})

	client, err := New(context.Background(), &Config{
		Enabled:    true,
		Address:    server.URL,
		AuthMethod: AuthMethodAppRole,
		AppRole:    &AppRoleAuthConfig{RoleID: "role", SecretID: "secret"},
	})
	require.NoError(t, err)

	value, err := client.ReadField(context.Background(), "secret", "k", "f")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	_, err = New(context.Background(), &Config{
		Enabled:    true,
		Address:    server.URL,
		AuthMethod: AuthMethodAppRole,
		AppRole:    &AppRoleAuthConfig{RoleID: "role", SecretID: "wrong"},
	})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestClient_Health(t *testing.T) {
	t.Parallel()

	server := fakeVault(t, nil)
	client, err := New(context.Background(), &Config{Enabled: true, Address: server.URL, Token: testToken})
	require.NoError(t, err)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Initialized)
	assert.False(t, status.Sealed)
	assert.Equal(t, "1.15.0", status.Version)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(context.Background(), &Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "disabled", config: Config{}},
		{name: "token", config: Config{Enabled: true, Address: "http://vault:8200", Token: "t"}},
		{name: "missing address", config: Config{Enabled: true, Token: "t"}, wantErr: true},
		{name: "missing token", config: Config{Enabled: true, Address: "http://vault:8200"}, wantErr: true},
		{name: "approle without secret id", config: Config{
			Enabled: true, Address: "http://vault:8200", AuthMethod: AuthMethodAppRole,
			AppRole: &AppRoleAuthConfig{RoleID: "r"},
		}, wantErr: true},
		{name: "unknown method", config: Config{
			Enabled: true, Address: "http://vault:8200", AuthMethod: "kubernetes",
		}, wantErr: true},
		{name: "negative retries", config: Config{
			Enabled: true, Address: "http://vault:8200", Token: "t", MaxRetries: -1,
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}
