package domain

import "strings"

// Principal is a verified external identity. Both fields are non-blank once a
// Principal has been produced by a validator or authorizer.
type Principal struct {
	ExternalID string `json:"externalId"`
	IDPSource  string `json:"idpSource"`
}

// Valid reports whether both identity fields carry text.
func (p Principal) Valid() bool {
	return !IsBlank(p.ExternalID) && !IsBlank(p.IDPSource)
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
