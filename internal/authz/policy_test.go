package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Allows(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	assert.True(t, p.Allows(RoleCertificateCreator))
	assert.True(t, p.Allows(RoleSuperUser))
	assert.False(t, p.Allows("9500.GGG-Covidcertificate.certificatecreator"))
	assert.False(t, p.Allows(""))

	// Decoded from configuration, not yet indexed.
	decoded := &Policy{AllowedRoles: []string{" custom.role "}}
	assert.True(t, decoded.Allows("custom.role"))
	assert.False(t, decoded.Allows(RoleSuperUser))
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, (&Policy{}).Validate())
	assert.Error(t, NewPolicy("a", " ").Validate())
}
