package vault

import (
	"fmt"
	"time"
)

// AuthMethod specifies the Vault authentication method.
type AuthMethod string

// Authentication method constants.
const (
	// AuthMethodToken uses a static token.
	AuthMethodToken AuthMethod = "token"

	// AuthMethodAppRole logs in with a role id and secret id.
	AuthMethodAppRole AuthMethod = "approle"
)

// Defaults.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultAppRoleMountPath = "approle"
)

// IsValid returns true if the auth method is known.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodToken, AuthMethodAppRole:
		return true
	default:
		return false
	}
}

// Config represents Vault client configuration.
type Config struct {
	// Enabled enables Vault integration.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Address is the Vault server address.
	Address string `yaml:"address" json:"address"`

	// Namespace is the Vault namespace (Enterprise feature).
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// AuthMethod specifies the authentication method. Defaults to token.
	AuthMethod AuthMethod `yaml:"authMethod,omitempty" json:"authMethod,omitempty"`

	// Token for token authentication.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// AppRole auth configuration.
	AppRole *AppRoleAuthConfig `yaml:"appRole,omitempty" json:"appRole,omitempty"`

	// TLS configuration for the Vault connection.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`

	// Timeout bounds every request. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRetries is the number of retries on 5xx answers.
	MaxRetries int `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
}

// AppRoleAuthConfig configures AppRole authentication.
type AppRoleAuthConfig struct {
	RoleID    string `yaml:"roleId" json:"roleId"`
	SecretID  string `yaml:"secretId" json:"secretId"`
	MountPath string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`
}

// TLSConfig configures TLS for the Vault connection.
type TLSConfig struct {
	CACert     string `yaml:"caCert,omitempty" json:"caCert,omitempty"`
	ClientCert string `yaml:"clientCert,omitempty" json:"clientCert,omitempty"`
	ClientKey  string `yaml:"clientKey,omitempty" json:"clientKey,omitempty"`
	SkipVerify bool   `yaml:"skipVerify,omitempty" json:"skipVerify,omitempty"`
}

// GetEffectiveAuthMethod returns the auth method, token when unset.
func (c *Config) GetEffectiveAuthMethod() AuthMethod {
	if c.AuthMethod == "" {
		return AuthMethodToken
	}
	return c.AuthMethod
}

// GetEffectiveTimeout returns the request timeout.
func (c *Config) GetEffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// GetMountPath returns the AppRole mount path.
func (c *AppRoleAuthConfig) GetMountPath() string {
	if c.MountPath == "" {
		return DefaultAppRoleMountPath
	}
	return c.MountPath
}

// Validate checks the configuration. A disabled configuration is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Address == "" {
		return NewConfigurationError("address", "address is required when vault is enabled")
	}
	if c.MaxRetries < 0 {
		return NewConfigurationError("maxRetries", "must not be negative")
	}

	switch method := c.GetEffectiveAuthMethod(); method {
	case AuthMethodToken:
		if c.Token == "" {
			return NewConfigurationError("token", "token is required for token authentication")
		}
	case AuthMethodAppRole:
		if c.AppRole == nil || c.AppRole.RoleID == "" || c.AppRole.SecretID == "" {
			return NewConfigurationError("appRole", "roleId and secretId are required for approle authentication")
		}
	default:
		return NewConfigurationError("authMethod", fmt.Sprintf("unsupported auth method %q", method))
	}
	return nil
}
