package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine readable error code returned to clients.
type Code string

// Wire error codes. These are the only codes a policy rejection can carry.
const (
	CodeMissingBearer           Code = "MISSING_BEARER"
	CodeInvalidOTPLength        Code = "INVALID_OTP_LENGTH"
	CodeInvalidBearer           Code = "INVALID_BEARER"
	CodeInvalidIdentityUser     Code = "INVALID_IDENTITY_USER"
	CodeInvalidIdentityUserRole Code = "INVALID_IDENTITY_USER_ROLE"
)

var publicMessages = map[Code]string{
	CodeMissingBearer:           "Bearer token is missing",
	CodeInvalidOTPLength:        "Invalid OTP length, the token is likely truncated or corrupted",
	CodeInvalidBearer:           "Invalid bearer token",
	CodeInvalidIdentityUser:     "Invalid identity user",
	CodeInvalidIdentityUserRole: "Invalid identity user role",
}

// PublicMessage returns the fixed message sent to clients with the code.
func (c Code) PublicMessage() string {
	return publicMessages[c]
}

// HTTPStatus returns the status a rejection with this code is rendered with.
func (c Code) HTTPStatus() int {
	return http.StatusForbidden
}

// Sentinel errors for the authorization taxonomy. Compare with errors.Is; any
// *Error with the same Code matches.
var (
	// ErrMissingToken indicates that no bearer token was supplied.
	ErrMissingToken = &Error{Code: CodeMissingBearer, Message: "bearer token is missing"}

	// ErrMalformedToken indicates a garbled token or a signature of the wrong length.
	ErrMalformedToken = &Error{Code: CodeInvalidOTPLength, Message: "bearer token is malformed"}

	// ErrInvalidToken covers every cryptographic, expiry, revocation and claim failure.
	ErrInvalidToken = &Error{Code: CodeInvalidBearer, Message: "bearer token is invalid"}

	// ErrInvalidIdentity indicates a blank identity or one unknown to the directory.
	ErrInvalidIdentity = &Error{Code: CodeInvalidIdentityUser, Message: "identity is invalid"}

	// ErrInvalidIdentityRole indicates an identity without an authorizing role.
	ErrInvalidIdentityRole = &Error{Code: CodeInvalidIdentityUserRole, Message: "identity lacks an authorizing role"}
)

// Error is a policy rejection carrying a wire code. Message and Cause are
// internal detail for logs and are never sent to clients.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Reject returns a copy of base with a more specific internal message.
func Reject(base *Error, message string) *Error {
	return &Error{Code: base.Code, Message: message}
}

// RejectWithCause returns a copy of base with an internal message and cause.
func RejectWithCause(base *Error, message string, cause error) *Error {
	return &Error{Code: base.Code, Message: message, Cause: cause}
}

// CodeOf returns the wire code of err. ok is false for fatal errors, which
// carry no code.
func CodeOf(err error) (code Code, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
