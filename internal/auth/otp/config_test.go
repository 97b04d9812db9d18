package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "inline key", cfg: Config{PublicKey: "x"}},
		{name: "key file", cfg: Config{PublicKeyFile: "/etc/certgw/otp.pub"}},
		{name: "vault key", cfg: Config{Vault: &VaultKeyRef{Mount: "secret", Path: "otp", Field: "publicKey"}}},
		{name: "no key source", cfg: Config{}, wantErr: true},
		{name: "incomplete vault ref", cfg: Config{Vault: &VaultKeyRef{Mount: "secret"}}, wantErr: true},
		{name: "ps256", cfg: Config{PublicKey: "x", Algorithm: "PS256"}},
		{name: "non rsa algorithm", cfg: Config{PublicKey: "x", Algorithm: "ES256"}, wantErr: true},
		{name: "negative skew", cfg: Config{PublicKey: "x", ClockSkew: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Effective(t *testing.T) {
	t.Parallel()

	empty := &Config{}
	assert.Equal(t, DefaultAlgorithm, empty.GetEffectiveAlgorithm())
	assert.Equal(t, "covidcertcreation", empty.GetEffectiveRequiredScope())
	assert.Equal(t, "authmachine+jwt", empty.GetEffectiveRequiredType())

	custom := &Config{Algorithm: "RS512", RequiredScope: "s", RequiredType: "t"}
	assert.Equal(t, "RS512", custom.GetEffectiveAlgorithm())
	assert.Equal(t, "s", custom.GetEffectiveRequiredScope())
	assert.Equal(t, "t", custom.GetEffectiveRequiredType())
}
