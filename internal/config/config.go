package config

import (
	"errors"
	"fmt"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/auth"
	"github.com/vyrodovalexey/certgw/internal/auth/otp"
	"github.com/vyrodovalexey/certgw/internal/authz"
	"github.com/vyrodovalexey/certgw/internal/downstream"
	"github.com/vyrodovalexey/certgw/internal/eiam"
	"github.com/vyrodovalexey/certgw/internal/observability"
	"github.com/vyrodovalexey/certgw/internal/revocation"
	"github.com/vyrodovalexey/certgw/internal/server"
	"github.com/vyrodovalexey/certgw/internal/vault"
)

// Config is the root gateway configuration.
type Config struct {
	Server        *server.Config          `yaml:"server" json:"server"`
	Observability *ObservabilityConfig    `yaml:"observability" json:"observability"`
	Auth          *auth.Config            `yaml:"auth" json:"auth"`
	OTP           *otp.Config             `yaml:"otp" json:"otp"`
	Authorization *authz.Policy           `yaml:"authorization" json:"authorization"`
	EIAM          *eiam.Config            `yaml:"eiam" json:"eiam"`
	Revocation    *revocation.Config      `yaml:"revocation" json:"revocation"`
	Vault         *vault.Config           `yaml:"vault" json:"vault"`
	Audit         *audit.Config           `yaml:"audit" json:"audit"`
	Downstream    *downstream.Config      `yaml:"downstream" json:"downstream"`
	RateLimit     *server.RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging observability.LogConfig    `yaml:"logging" json:"logging"`
	Metrics MetricsConfig              `yaml:"metrics" json:"metrics"`
	Tracing observability.TracerConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// DefaultConfig returns a configuration with every section at its defaults.
// The directory, downstream and key material have no usable default.
func DefaultConfig() *Config {
	return &Config{
		Server: server.DefaultConfig(),
		Observability: &ObservabilityConfig{
			Logging: observability.DefaultLogConfig(),
			Metrics: MetricsConfig{Enabled: true, Namespace: observability.DefaultNamespace},
			Tracing: observability.TracerConfig{ServiceName: "certgw", SamplingRate: 1.0},
		},
		Auth:          &auth.Config{},
		OTP:           otp.DefaultConfig(),
		Authorization: &authz.Policy{AllowedRoles: []string{authz.RoleCertificateCreator, authz.RoleSuperUser}},
		EIAM:          &eiam.Config{},
		Revocation:    revocation.DefaultConfig(),
		Vault:         &vault.Config{},
		Audit:         audit.DefaultConfig(),
		Downstream:    &downstream.Config{},
		RateLimit:     &server.RateLimitConfig{},
	}
}

// Validate checks every section and the references between them.
func (c *Config) Validate() error {
	type validator interface{ Validate() error }

	sections := []struct {
		name    string
		present bool
		v       validator
	}{
		{"server", c.Server != nil, c.Server},
		{"auth", c.Auth != nil, c.Auth},
		{"otp", c.OTP != nil, c.OTP},
		{"authorization", c.Authorization != nil, c.Authorization},
		{"eiam", c.EIAM != nil, c.EIAM},
		{"revocation", c.Revocation != nil, c.Revocation},
		{"vault", c.Vault != nil, c.Vault},
		{"downstream", c.Downstream != nil, c.Downstream},
		{"rateLimit", c.RateLimit != nil, c.RateLimit},
	}

	var errs []error
	for _, s := range sections {
		if !s.present {
			errs = append(errs, fmt.Errorf("%s: section is required", s.name))
			continue
		}
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	if c.OTP != nil && c.OTP.Vault != nil && (c.Vault == nil || !c.Vault.Enabled) {
		errs = append(errs, errors.New("otp.vault requires vault.enabled"))
	}
	if c.Observability == nil {
		errs = append(errs, errors.New("observability: section is required"))
	} else if c.Observability.Tracing.Enabled && c.Observability.Tracing.OTLPEndpoint == "" {
		errs = append(errs, errors.New("observability.tracing.otlpEndpoint is required when tracing is enabled"))
	}

	return errors.Join(errs...)
}
