// Package otptest mints signed bearer tokens for tests.
package otptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Issuer signs tokens with a freshly generated RSA key.
type Issuer struct {
	Key *rsa.PrivateKey
}

// NewIssuer generates a 2048 bit key.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Issuer{Key: key}
}

// PublicKey returns the verification key.
func (i *Issuer) PublicKey() *rsa.PublicKey {
	return &i.Key.PublicKey
}

// PublicKeyBase64 returns the verification key as base64 encoded SPKI DER.
func (i *Issuer) PublicKeyBase64(t testing.TB) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&i.Key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

// ValidClaims returns a claim set that passes every check, expiring in an hour.
func ValidClaims(extID, idpSource, jti string) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		jwt.JwtIDKey:      jti,
		jwt.IssuedAtKey:   now.Add(-time.Minute),
		jwt.ExpirationKey: now.Add(time.Hour),
		"userExtId":       extID,
		"idpsource":       idpSource,
		"scope":           "covidcertcreation",
		"typ":             "authmachine+jwt",
		"otp":             "v",
	}
}

// Mint signs claims with RS256. A nil value removes the claim.
func (i *Issuer) Mint(t testing.TB, claims map[string]interface{}) string {
	t.Helper()
	return i.MintWith(t, jwa.RS256, i.Key, claims)
}

// MintWith signs claims with the given algorithm and key.
func (i *Issuer) MintWith(t testing.TB, alg jwa.SignatureAlgorithm, key interface{}, claims map[string]interface{}) string {
	t.Helper()

	tok := jwt.New()
	for name, value := range claims {
		if value == nil {
			continue
		}
		if err := tok.Set(name, value); err != nil {
			t.Fatalf("set claim %s: %v", name, err)
		}
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(alg, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}
