package auth0

import (
	"encoding/json"

	"github.com/goliatone/go-jwtguard"
)

// Profile is a typed view of the claims Auth0 puts in access tokens.
type Profile struct {
	Subject        string         `json:"sub"`
	Scope          string         `json:"scope"`
	Permissions    []string       `json:"permissions"`
	Email          string         `json:"email"`
	EmailVerified  bool           `json:"email_verified"`
	Name           string         `json:"name"`
	Nickname       string         `json:"nickname"`
	Picture        string         `json:"picture"`
	OrganizationID string         `json:"org_id"`
	AppMetadata    map[string]any `json:"app_metadata"`

	// Custom holds the namespaced claims with the namespace stripped.
	Custom map[string]any  `json:"-"`
	Raw    jwtguard.Claims `json:"-"`
}

// NewProfile decodes claims into a Profile. Custom claims are read from
// namespace, falling back to jwtguard.DefaultNamespace.
func NewProfile(claims jwtguard.Claims, namespace string) (Profile, error) {
	if namespace == "" {
		namespace = jwtguard.DefaultNamespace
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}

	p.Custom = claims.Namespaced(namespace)
	p.Raw = claims.ToMap()
	return p, nil
}

// HasPermission reports whether the RBAC permissions claim grants permission.
func (p Profile) HasPermission(permission string) bool {
	for _, granted := range p.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}
