// Package eiam queries the external identity and access management (EIAM)
// directory for the profiles and role authorizations of a user.
//
// The client validates its input locally: a blank external id or identity
// provider source fails with domain.ErrInvalidIdentity without any network
// call. Transport and protocol failures are returned as plain errors so the
// caller can tell an outage from a policy rejection.
package eiam
