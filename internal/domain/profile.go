package domain

// ProfileState is the lifecycle state of a directory profile.
type ProfileState string

// Known profile states. The directory may return others.
const (
	ProfileStateActive   ProfileState = "ACTIVE"
	ProfileStateInactive ProfileState = "INACTIVE"
)

// RoleAuthorization grants one role to a profile.
type RoleAuthorization struct {
	RoleExternalID string
}

// DirectoryProfile is one profile of a user as returned by the identity directory.
type DirectoryProfile struct {
	State          ProfileState
	Authorizations []RoleAuthorization
}

// RoleIDs returns the role external ids of the profile in directory order.
func (p DirectoryProfile) RoleIDs() []string {
	ids := make([]string, 0, len(p.Authorizations))
	for _, a := range p.Authorizations {
		ids = append(ids, a.RoleExternalID)
	}
	return ids
}
