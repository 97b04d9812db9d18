package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{name: "same sentinel", err: ErrInvalidToken, target: ErrInvalidToken, expected: true},
		{name: "rejection with detail", err: Reject(ErrInvalidToken, "token expired"), target: ErrInvalidToken, expected: true},
		{name: "wrapped rejection", err: fmt.Errorf("resolve: %w", Reject(ErrMissingToken, "x")), target: ErrMissingToken, expected: true},
		{name: "different code", err: ErrInvalidIdentity, target: ErrInvalidIdentityRole, expected: false},
		{name: "plain error", err: errors.New("boom"), target: ErrInvalidToken, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, errors.Is(tt.err, tt.target))
		})
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("signature mismatch")
	err := RejectWithCause(ErrInvalidToken, "signature verification failed", cause)

	assert.Equal(t, "INVALID_BEARER: signature verification failed: signature mismatch", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "MISSING_BEARER: bearer token is missing", ErrMissingToken.Error())
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	code, ok := CodeOf(fmt.Errorf("wrap: %w", ErrInvalidIdentityRole))
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidIdentityUserRole, code)

	_, ok = CodeOf(errors.New("directory unavailable"))
	assert.False(t, ok)
}

func TestCode_Rendering(t *testing.T) {
	t.Parallel()

	for _, code := range []Code{
		CodeMissingBearer,
		CodeInvalidOTPLength,
		CodeInvalidBearer,
		CodeInvalidIdentityUser,
		CodeInvalidIdentityUserRole,
	} {
		assert.Equal(t, http.StatusForbidden, code.HTTPStatus(), code)
		assert.NotEmpty(t, code.PublicMessage(), code)
	}
}

func TestPrincipal_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, Principal{ExternalID: "U1", IDPSource: "IDP1"}.Valid())
	assert.False(t, Principal{ExternalID: " ", IDPSource: "IDP1"}.Valid())
	assert.False(t, Principal{ExternalID: "U1"}.Valid())
}

func TestDirectoryProfile_RoleIDs(t *testing.T) {
	t.Parallel()

	p := DirectoryProfile{
		State: ProfileStateInactive,
		Authorizations: []RoleAuthorization{
			{RoleExternalID: "a"},
			{RoleExternalID: "b"},
		},
	}
	assert.Equal(t, []string{"a", "b"}, p.RoleIDs())
}
