package auth

import (
	"errors"
	"strings"
)

// Config contains the certificate path configuration.
type Config struct {
	// AllowedCommonNames lists client certificate common names trusted to
	// embed an identity in the request.
	AllowedCommonNames []string `yaml:"allowedCommonNames" json:"allowedCommonNames"`

	// CommonNameHeader names a header carrying the client certificate common
	// name, set by a TLS terminating proxy. Empty means the common name is
	// taken from the TLS connection only.
	CommonNameHeader string `yaml:"commonNameHeader,omitempty" json:"commonNameHeader,omitempty"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for _, cn := range c.AllowedCommonNames {
		if strings.TrimSpace(cn) == "" {
			return errors.New("auth.allowedCommonNames must not contain blank entries")
		}
	}
	return nil
}
