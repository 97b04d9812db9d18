package downstream

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Defaults.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultBreakerThreshold = 10
	DefaultBreakerTimeout   = 30 * time.Second
)

// Service paths, relative to the configured base URLs.
const (
	GenerationPathPrefix = "api/v1/covidcertificate/"
	RevocationPath       = "api/v1/revocation/"
)

// maxResponseBytes caps how much of a downstream answer is read.
const maxResponseBytes = 4 << 20

// Config configures the downstream services.
type Config struct {
	// GenerationURL is the base URL of the certificate generation service.
	GenerationURL string `yaml:"generationUrl" json:"generationUrl"`

	// ManagementURL is the base URL of the certificate management service.
	ManagementURL string `yaml:"managementUrl" json:"managementUrl"`

	// Timeout bounds each call. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// CircuitBreaker configures the breakers. Nil means defaults.
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures the breaker in front of each target.
type CircuitBreakerConfig struct {
	// Threshold is the minimum number of requests in a window before the
	// breaker may trip on a failure ratio of at least one half.
	Threshold int `yaml:"threshold" json:"threshold"`

	// Timeout is how long the breaker stays open. It is also the counting window.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// GetEffectiveTimeout returns the call timeout.
func (c *Config) GetEffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// GetEffectiveBreaker returns the breaker settings with defaults applied.
func (c *Config) GetEffectiveBreaker() CircuitBreakerConfig {
	out := CircuitBreakerConfig{Threshold: DefaultBreakerThreshold, Timeout: DefaultBreakerTimeout}
	if c.CircuitBreaker != nil {
		if c.CircuitBreaker.Threshold > 0 {
			out.Threshold = c.CircuitBreaker.Threshold
		}
		if c.CircuitBreaker.Timeout > 0 {
			out.Timeout = c.CircuitBreaker.Timeout
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"downstream.generationUrl": c.GenerationURL,
		"downstream.managementUrl": c.ManagementURL,
	} {
		if raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", name, raw))
		}
	}
	return errors.Join(errs...)
}
