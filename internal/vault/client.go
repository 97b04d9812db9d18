package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// HealthStatus represents Vault health status.
type HealthStatus struct {
	Initialized bool
	Sealed      bool
	Standby     bool
	Version     string
	ClusterName string
}

// Client reads secrets from Vault.
type Client struct {
	config  *Config
	api     *vaultapi.Client
	logger  observability.Logger
	metrics *Metrics
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the client.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates an authenticated Vault client.
func New(ctx context.Context, cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, NewConfigurationError("", "configuration is nil")
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = cfg.GetEffectiveTimeout()
	apiConfig.MaxRetries = cfg.MaxRetries

	if cfg.TLS != nil {
		if err := apiConfig.ConfigureTLS(&vaultapi.TLSConfig{
			CACert:     cfg.TLS.CACert,
			ClientCert: cfg.TLS.ClientCert,
			ClientKey:  cfg.TLS.ClientKey,
			Insecure:   cfg.TLS.SkipVerify,
		}); err != nil {
			return nil, fmt.Errorf("configure vault tls: %w", err)
		}
	}

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, newVaultError("init", "", err)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	c := &Client{
		config: cfg,
		api:    api,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(observability.String("component", "vault"))

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) authenticate(ctx context.Context) error {
	start := time.Now()
	method := c.config.GetEffectiveAuthMethod()

	switch method {
	case AuthMethodToken:
		c.api.SetToken(c.config.Token)
	case AuthMethodAppRole:
		path := fmt.Sprintf("auth/%s/login", c.config.AppRole.GetMountPath())
		secret, err := c.api.Logical().WriteWithContext(ctx, path, map[string]interface{}{
			"role_id":   c.config.AppRole.RoleID,
			"secret_id": c.config.AppRole.SecretID,
		})
		if err != nil {
			c.metrics.RecordRequest("login", "error", time.Since(start))
			return newVaultError("login", path, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
		}
		if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
			c.metrics.RecordRequest("login", "error", time.Since(start))
			return newVaultError("login", path, ErrAuthenticationFailed)
		}
		c.api.SetToken(secret.Auth.ClientToken)
		c.metrics.RecordRequest("login", "success", time.Since(start))
	}

	c.logger.Info("vault client authenticated", observability.String("method", string(method)))
	return nil
}

// ReadKV reads a secret from a KV mount. KV version 2 payloads are unwrapped.
func (c *Client) ReadKV(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if mount == "" || path == "" {
		return nil, newVaultError("kv_read", path, fmt.Errorf("%w: mount and path are required", ErrInvalidConfig))
	}

	start := time.Now()
	fullPath := fmt.Sprintf("%s/data/%s", mount, path)

	secret, err := c.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		c.metrics.RecordRequest("kv_read", "error", time.Since(start))
		return nil, newVaultError("kv_read", fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		c.metrics.RecordRequest("kv_read", "not_found", time.Since(start))
		return nil, newVaultError("kv_read", fullPath, ErrSecretNotFound)
	}

	// Deleted KV v2 versions answer with data: null.
	dataValue, hasData := secret.Data["data"]
	if hasData && dataValue == nil {
		c.metrics.RecordRequest("kv_read", "not_found", time.Since(start))
		return nil, newVaultError("kv_read", fullPath, ErrSecretNotFound)
	}

	data, ok := dataValue.(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	c.metrics.RecordRequest("kv_read", "success", time.Since(start))
	c.logger.Debug("secret read", observability.String("path", fullPath))
	return data, nil
}

// ReadField reads one string field of a KV secret.
func (c *Client) ReadField(ctx context.Context, mount, path, field string) (string, error) {
	data, err := c.ReadKV(ctx, mount, path)
	if err != nil {
		return "", err
	}

	value, ok := data[field].(string)
	if !ok || value == "" {
		return "", newVaultError("kv_read", mount+"/"+path, fmt.Errorf("%w: %s", ErrFieldNotFound, field))
	}
	return value, nil
}

// Health returns the Vault health status.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()

	resp, err := c.api.Sys().HealthWithContext(ctx)
	if err != nil {
		c.metrics.RecordRequest("health", "error", time.Since(start))
		return nil, newVaultError("health", "", err)
	}
	c.metrics.RecordRequest("health", "success", time.Since(start))

	return &HealthStatus{
		Initialized: resp.Initialized,
		Sealed:      resp.Sealed,
		Standby:     resp.Standby,
		Version:     resp.Version,
		ClusterName: resp.ClusterName,
	}, nil
}

// Ping fails when Vault is unreachable or sealed.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if status.Sealed {
		return newVaultError("health", "", fmt.Errorf("vault is sealed"))
	}
	return nil
}
