package auth

import (
	"crypto/tls"
	"net/http"
	"strings"
)

// EmbeddedIdentity is the identity a trusted caller states in the request body.
type EmbeddedIdentity struct {
	UUID      string `json:"uuid"`
	IDPSource string `json:"idpSource"`
}

// RequestAuthContext carries everything the Decider looks at for one request.
// Empty strings and a nil EmbeddedIdentity mean "not supplied".
type RequestAuthContext struct {
	ClientCertificateCommonName string
	EmbeddedIdentity            *EmbeddedIdentity
	BearerToken                 string
	RemoteAddress               string
}

// ExtractBearerToken extracts a bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// CommonNameFromTLS returns the subject common name of the verified client
// certificate, or "" when the connection carries none.
func CommonNameFromTLS(state *tls.ConnectionState) string {
	if state == nil {
		return ""
	}
	if len(state.VerifiedChains) > 0 && len(state.VerifiedChains[0]) > 0 {
		return state.VerifiedChains[0][0].Subject.CommonName
	}
	return ""
}
