package domain

import "slices"

// AdminGroup members pass every group check.
const AdminGroup = "admin"

// Principal is the authenticated caller derived from a verified access token.
type Principal struct {
	// Sub is the subject claim, the stable user identifier.
	Sub string `json:"sub"`

	// Username is the human-readable identity, when present in the claims.
	Username string `json:"username,omitempty"`

	// Groups are the group claims used for coarse authorisation.
	Groups []string `json:"groups"`

	// Scopes are the OAuth scopes granted to the token.
	Scopes []string `json:"scopes"`

	// Claims holds the full verified claim set.
	Claims map[string]any `json:"-"`
}

// InGroup reports whether the principal belongs to the group.
// Admins belong to every group.
func (p Principal) InGroup(group string) bool {
	if slices.Contains(p.Groups, AdminGroup) {
		return true
	}
	return slices.Contains(p.Groups, group)
}

// DevPrincipal is the admin principal granted when auth is disabled.
// Must never be reachable in a production deployment.
func DevPrincipal() Principal {
	return Principal{
		Sub:      "local_dev",
		Username: "local_dev",
		Groups:   []string{AdminGroup},
		Scopes:   []string{"*"},
		Claims:   map[string]any{},
	}
}
