package otp

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ErrNotRSAKey indicates key material that is not an RSA public key.
var ErrNotRSAKey = errors.New("key is not an RSA public key")

// SecretReader reads one field of a KV secret. The vault client implements it.
type SecretReader interface {
	ReadField(ctx context.Context, mount, path, field string) (string, error)
}

// LoadPublicKey resolves the verification key from the first configured
// source: inline material, a file, or Vault.
func LoadPublicKey(ctx context.Context, cfg *Config, secrets SecretReader) (*rsa.PublicKey, error) {
	switch {
	case cfg.PublicKey != "":
		return ParsePublicKey(cfg.PublicKey)
	case cfg.PublicKeyFile != "":
		//nolint:gosec // G304: path from config is trusted
		data, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key file: %w", err)
		}
		return ParsePublicKey(string(data))
	case cfg.Vault != nil:
		if secrets == nil {
			return nil, errors.New("public key is stored in vault but vault is not configured")
		}
		material, err := secrets.ReadField(ctx, cfg.Vault.Mount, cfg.Vault.Path, cfg.Vault.Field)
		if err != nil {
			return nil, fmt.Errorf("read public key from vault: %w", err)
		}
		return ParsePublicKey(material)
	default:
		return nil, errors.New("no public key source configured")
	}
}

// ParsePublicKey parses an RSA public key given as PEM, as base64 encoded
// X.509 SubjectPublicKeyInfo DER, or as a JWK JSON object.
func ParsePublicKey(material string) (*rsa.PublicKey, error) {
	material = strings.TrimSpace(material)

	switch {
	case strings.HasPrefix(material, "-----BEGIN"):
		return parsePEM(material)
	case strings.HasPrefix(material, "{"):
		return parseJWK(material)
	default:
		der, err := base64.StdEncoding.DecodeString(stripWhitespace(material))
		if err != nil {
			return nil, fmt.Errorf("decode public key: %w", err)
		}
		return parseDER(der)
	}
}

func parsePEM(material string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(material))
	if block == nil {
		return nil, errors.New("no PEM block found in public key")
	}
	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	return parseDER(block.Bytes)
}

func parseDER(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaKey, nil
}

func parseJWK(material string) (*rsa.PublicKey, error) {
	key, err := jwk.ParseKey([]byte(material))
	if err != nil {
		return nil, fmt.Errorf("parse jwk: %w", err)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("export jwk: %w", err)
	}
	rsaKey, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaKey, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
