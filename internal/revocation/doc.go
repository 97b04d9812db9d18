// Package revocation exposes the set of revoked bearer token ids.
//
// A Ledger is read on every token validation and never cached: a token id
// revoked by any part of the system must be rejected by the next validation
// that starts after the revocation was written. Three backends are provided:
// an in-memory set for development, a Redis set, and a Postgres table.
package revocation
