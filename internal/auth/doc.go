// Package auth resolves the external id a request acts for.
//
// The Decider picks one of two paths per request. When the client
// certificate common name is on the trusted allow-list and the request
// embeds an identity, that identity is authorized against the directory
// (certificate path). Otherwise the bearer token is validated (bearer path).
// A trusted certificate without an embedded identity falls through to the
// bearer path.
package auth
