// Package otp validates the short-lived signed bearer tokens ("OTPs") issued
// by the authentication service for machine clients.
//
// Validation runs a fixed sequence of checks and stops at the first failure:
//
//  1. the token must be present (domain.ErrMissingToken)
//  2. it must look like a compact JWS with a JSON header (domain.ErrMalformedToken)
//  3. the header must name the configured RSA algorithm (domain.ErrInvalidToken)
//  4. the signature must have the byte length of the key modulus (domain.ErrMalformedToken)
//  5. the signature must verify and the token must not be expired (domain.ErrInvalidToken)
//  6. the jti must not be in the revocation ledger (domain.ErrInvalidToken)
//  7. scope must equal the required scope (domain.ErrInvalidToken)
//  8. userExtId, idpsource and typ must be non-blank, typ must equal the
//     required type (domain.ErrInvalidToken)
//
// A successful validation writes exactly one sec-kpi audit event.
package otp
