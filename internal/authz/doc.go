// Package authz decides whether a directory identity may use the certificate
// operations.
//
// The Authorizer asks the identity directory for the user's profiles and
// grants access when any authorization of any profile names a role from the
// Policy. Profile state (ACTIVE, INACTIVE, ...) is not a gating condition.
package authz
