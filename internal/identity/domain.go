package identity

// Identity is the authenticated actor as seen by the authorization core.
// Role never changes for the lifetime of a session; switching roles means
// re-authenticating and producing a fresh Identity.
type Identity struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Role          Role     `json:"role"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
}

// Student is an entity linked to an identity: a child linked to a
// parent/guardian account, or the student's own record when the identity
// itself has the student role.
type Student struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Grade         string `json:"grade,omitempty"`
	InstitutionID string `json:"institution_id"`
	ParentID      string `json:"parent_id,omitempty"`
}

// Anonymous returns the sentinel identity used when no session exists.
// The core never branches on a nil identity; absence of authentication is
// itself a role.
func Anonymous() *Identity {
	return &Identity{Role: RoleAnonymous}
}

// Authenticated reports whether the identity represents a real login.
func (i *Identity) Authenticated() bool {
	return i != nil && i.Role.Authenticated()
}

// HasPermission reports whether the identity carries the given held
// permission flag. Super admins implicitly hold every flag.
func (i *Identity) HasPermission(flag string) bool {
	if i == nil {
		return false
	}
	if i.Role == RoleSuperAdmin {
		return true
	}
	for _, p := range i.Permissions {
		if p == flag {
			return true
		}
	}
	return false
}
