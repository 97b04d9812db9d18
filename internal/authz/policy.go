package authz

import (
	"errors"
	"strings"
)

// Default authorizing roles.
const (
	RoleCertificateCreator = "9500.GGG-Covidcertificate.CertificateCreator"
	RoleSuperUser          = "9500.GGG-Covidcertificate.SuperUserCC"
)

// Policy is the static set of role external ids that grant access. Every
// listed role is equally sufficient.
type Policy struct {
	AllowedRoles []string `yaml:"allowedRoles" json:"allowedRoles"`

	allowed map[string]struct{}
}

// DefaultPolicy returns the certificate creator and super user roles.
func DefaultPolicy() *Policy {
	return NewPolicy(RoleCertificateCreator, RoleSuperUser)
}

// NewPolicy creates a policy from role ids.
func NewPolicy(roles ...string) *Policy {
	p := &Policy{AllowedRoles: roles}
	p.index()
	return p
}

func (p *Policy) index() {
	p.allowed = make(map[string]struct{}, len(p.AllowedRoles))
	for _, r := range p.AllowedRoles {
		p.allowed[strings.TrimSpace(r)] = struct{}{}
	}
}

// Validate checks that at least one non-blank role is configured.
func (p *Policy) Validate() error {
	if len(p.AllowedRoles) == 0 {
		return errors.New("authorization.allowedRoles must not be empty")
	}
	for _, r := range p.AllowedRoles {
		if strings.TrimSpace(r) == "" {
			return errors.New("authorization.allowedRoles must not contain blank roles")
		}
	}
	return nil
}

// Allows reports whether role grants access. Matching is exact.
func (p *Policy) Allows(role string) bool {
	if p.allowed == nil {
		for _, r := range p.AllowedRoles {
			if strings.TrimSpace(r) == role {
				return true
			}
		}
		return false
	}
	_, ok := p.allowed[role]
	return ok
}
