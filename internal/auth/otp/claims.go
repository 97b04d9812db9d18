package otp

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claim names read from the token payload.
const (
	ClaimUserExtID = "userExtId"
	ClaimIDPSource = "idpsource"
	ClaimScope     = "scope"
	ClaimType      = "typ"
	ClaimOTPType   = "otp"
)

// Claims is the structural view of a verified token. It only lives for the
// duration of one validation.
type Claims struct {
	ExternalID string
	IDPSource  string
	Scope      string
	Type       string
	TokenID    string
	OTPType    string
	Expiry     time.Time
}

func claimsFromToken(tok jwt.Token) *Claims {
	return &Claims{
		ExternalID: stringClaim(tok, ClaimUserExtID),
		IDPSource:  stringClaim(tok, ClaimIDPSource),
		Scope:      stringClaim(tok, ClaimScope),
		Type:       stringClaim(tok, ClaimType),
		TokenID:    tok.JwtID(),
		OTPType:    stringClaim(tok, ClaimOTPType),
		Expiry:     tok.Expiration(),
	}
}

// stringClaim returns the claim as a string. Missing or non-string claims
// read as empty.
func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
