// Package domain holds the request-scoped values shared by the authorization
// packages: the resolved Principal, the directory profile model, and the
// error taxonomy whose codes are visible on the wire.
package domain
