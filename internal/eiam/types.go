package eiam

import "github.com/vyrodovalexey/certgw/internal/domain"

// Content type constants.
const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderCorrelationID = "X-Correlation-ID"
	ContentTypeJSON     = "application/json"
)

// QueryUsersRequest is the body of a user query.
type QueryUsersRequest struct {
	ExtID         string `json:"extId"`
	IDPSource     string `json:"idpSource"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// QueryUsersResponse is the directory answer. Each returned user carries its
// profiles.
type QueryUsersResponse struct {
	Returns []User `json:"returns"`
}

// User is one directory user.
type User struct {
	ExtID    string    `json:"extId,omitempty"`
	Profiles []Profile `json:"profiles"`
}

// Profile is one profile of a user.
type Profile struct {
	ExtID          string          `json:"extId,omitempty"`
	State          string          `json:"state"`
	Authorizations []Authorization `json:"authorizations"`
}

// Authorization grants a role.
type Authorization struct {
	Role Role `json:"role"`
}

// Role is a directory role.
type Role struct {
	ExtID string `json:"extId"`
	Name  string `json:"name,omitempty"`
}

// Profiles flattens the profiles of every returned user, keeping directory order.
func (r *QueryUsersResponse) Profiles() []domain.DirectoryProfile {
	var profiles []domain.DirectoryProfile
	for _, user := range r.Returns {
		for _, p := range user.Profiles {
			dp := domain.DirectoryProfile{
				State:          domain.ProfileState(p.State),
				Authorizations: make([]domain.RoleAuthorization, 0, len(p.Authorizations)),
			}
			for _, a := range p.Authorizations {
				dp.Authorizations = append(dp.Authorizations, domain.RoleAuthorization{RoleExternalID: a.Role.ExtID})
			}
			profiles = append(profiles, dp)
		}
	}
	return profiles
}
