package eiam

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Defaults for the directory client.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultQueryPath = "/api/v1/users/query"
)

// Config contains directory client configuration.
type Config struct {
	// URL is the base URL of the directory service.
	URL string `yaml:"url" json:"url"`

	// QueryPath is appended to URL for user queries.
	QueryPath string `yaml:"queryPath,omitempty" json:"queryPath,omitempty"`

	// Timeout bounds one query.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// TLS configures the client certificate presented to the directory.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// TLSConfig holds client TLS material.
type TLSConfig struct {
	CertFile           string `yaml:"certFile,omitempty" json:"certFile,omitempty"`
	KeyFile            string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
	CAFile             string `yaml:"caFile,omitempty" json:"caFile,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty" json:"insecureSkipVerify,omitempty"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("eiam.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("eiam.url %q is not an absolute URL", c.URL)
	}
	if c.Timeout < 0 {
		return errors.New("eiam.timeout must not be negative")
	}
	if c.TLS != nil && (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("eiam.tls.certFile and eiam.tls.keyFile must be set together")
	}
	return nil
}

// GetEffectiveTimeout returns the timeout or its default.
func (c *Config) GetEffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// GetEffectiveQueryPath returns the query path or its default.
func (c *Config) GetEffectiveQueryPath() string {
	if c.QueryPath == "" {
		return DefaultQueryPath
	}
	return c.QueryPath
}

// BuildTLSConfig loads the client TLS material. It returns nil when no TLS
// section is configured.
func (c *TLSConfig) BuildTLSConfig() (*tls.Config, error) {
	if c == nil {
		return nil, nil
	}

	//nolint:gosec // G402: InsecureSkipVerify is opt-in for test environments
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load eiam client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.CAFile != "" {
		//nolint:gosec // G304: path from config is trusted
		pemData, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read eiam CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, errors.New("eiam CA file contains no certificates")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
