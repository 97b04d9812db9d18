package otp

import (
	"errors"
	"time"
)

// Defaults for bearer token validation.
const (
	DefaultAlgorithm     = "RS256"
	DefaultRequiredScope = "covidcertcreation"
	DefaultRequiredType  = "authmachine+jwt"
)

var rsaAlgorithms = map[string]struct{}{
	"RS256": {}, "RS384": {}, "RS512": {},
	"PS256": {}, "PS384": {}, "PS512": {},
}

// Config contains bearer token validation configuration.
type Config struct {
	// PublicKey is the verification key as PEM, base64 encoded DER or JWK JSON.
	PublicKey string `yaml:"publicKey,omitempty" json:"publicKey,omitempty"`

	// PublicKeyFile is a file holding the verification key.
	PublicKeyFile string `yaml:"publicKeyFile,omitempty" json:"publicKeyFile,omitempty"`

	// Vault locates the verification key in a Vault KV v2 secret.
	Vault *VaultKeyRef `yaml:"vault,omitempty" json:"vault,omitempty"`

	// Algorithm is the only accepted signing algorithm. It must be RSA based.
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// RequiredScope is the exact value of the scope claim.
	RequiredScope string `yaml:"requiredScope,omitempty" json:"requiredScope,omitempty"`

	// RequiredType is the exact value of the typ claim.
	RequiredType string `yaml:"requiredType,omitempty" json:"requiredType,omitempty"`

	// ClockSkew is tolerated on exp, nbf and iat.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}

// VaultKeyRef points at a field of a Vault KV v2 secret.
type VaultKeyRef struct {
	Mount string `yaml:"mount" json:"mount"`
	Path  string `yaml:"path" json:"path"`
	Field string `yaml:"field" json:"field"`
}

// DefaultConfig returns a configuration with the default scope, type and algorithm.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:     DefaultAlgorithm,
		RequiredScope: DefaultRequiredScope,
		RequiredType:  DefaultRequiredType,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PublicKey == "" && c.PublicKeyFile == "" && c.Vault == nil {
		return errors.New("otp: one of publicKey, publicKeyFile or vault is required")
	}
	if c.Vault != nil && (c.Vault.Mount == "" || c.Vault.Path == "" || c.Vault.Field == "") {
		return errors.New("otp: vault key reference needs mount, path and field")
	}
	if _, ok := rsaAlgorithms[c.GetEffectiveAlgorithm()]; !ok {
		return errors.New("otp: algorithm must be one of RS256, RS384, RS512, PS256, PS384, PS512")
	}
	if c.ClockSkew < 0 {
		return errors.New("otp: clockSkew must not be negative")
	}
	return nil
}

// GetEffectiveAlgorithm returns the algorithm or its default.
func (c *Config) GetEffectiveAlgorithm() string {
	if c.Algorithm == "" {
		return DefaultAlgorithm
	}
	return c.Algorithm
}

// GetEffectiveRequiredScope returns the required scope or its default.
func (c *Config) GetEffectiveRequiredScope() string {
	if c.RequiredScope == "" {
		return DefaultRequiredScope
	}
	return c.RequiredScope
}

// GetEffectiveRequiredType returns the required typ or its default.
func (c *Config) GetEffectiveRequiredType() string {
	if c.RequiredType == "" {
		return DefaultRequiredType
	}
	return c.RequiredType
}
