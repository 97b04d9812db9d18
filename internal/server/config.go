package server

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

// Defaults.
const (
	DefaultPort               = 8443
	DefaultMetricsPort        = 9090
	DefaultReadTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 60 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMaxRequestBodySize = 1 << 20
)

// Config holds the HTTP server configuration.
type Config struct {
	Address            string        `yaml:"address,omitempty" json:"address,omitempty"`
	Port               int           `yaml:"port" json:"port"`
	MetricsPort        int           `yaml:"metricsPort" json:"metricsPort"`
	ReadTimeout        time.Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout       time.Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout        time.Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	MaxRequestBodySize int64         `yaml:"maxRequestBodySize,omitempty" json:"maxRequestBodySize,omitempty"`

	// TLS enables HTTPS. Client certificates are requested and verified
	// against ClientCAFile when given, but never required.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// TLSConfig configures the listener certificate and client verification.
type TLSConfig struct {
	CertFile     string `yaml:"certFile" json:"certFile"`
	KeyFile      string `yaml:"keyFile" json:"keyFile"`
	ClientCAFile string `yaml:"clientCaFile,omitempty" json:"clientCaFile,omitempty"`
}

// RateLimitConfig configures per-client rate limiting of the protected routes.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int           `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int           `yaml:"burst" json:"burst"`
	ClientTTL         time.Duration `yaml:"clientTtl,omitempty" json:"clientTtl,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Port:               DefaultPort,
		MetricsPort:        DefaultMetricsPort,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		IdleTimeout:        DefaultIdleTimeout,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MaxRequestBodySize: DefaultMaxRequestBodySize,
	}
}

// GetEffectiveShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) GetEffectiveShutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return c.ShutdownTimeout
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("server.metricsPort %d is out of range", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		errs = append(errs, errors.New("server.metricsPort must differ from server.port"))
	}
	if c.MaxRequestBodySize < 0 {
		errs = append(errs, errors.New("server.maxRequestBodySize must not be negative"))
	}
	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires certFile and keyFile"))
	}
	return errors.Join(errs...)
}

// Validate checks the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 || c.Burst <= 0 {
		return errors.New("rateLimit.requestsPerSecond and rateLimit.burst must be positive")
	}
	return nil
}

// BuildTLSConfig loads the listener certificate and the client CA pool.
func (c *TLSConfig) BuildTLSConfig() (*tls.Config, error) {
	if c == nil {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   tls.RequestClientCert,
	}

	if c.ClientCAFile != "" {
		pem, err := os.ReadFile(c.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.ClientCAFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	return tlsConfig, nil
}
