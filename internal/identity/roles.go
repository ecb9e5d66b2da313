package identity

// Role enumerates every actor kind the platform recognises. The set is
// closed: anything outside it is treated as RoleAnonymous.
type Role string

const (
	RoleParent           Role = "parent"
	RoleGuardian         Role = "guardian"
	RoleStudent          Role = "student"
	RoleInstitutionAdmin Role = "institution_admin"
	RoleSuperAdmin       Role = "super_admin"
	RoleSupport          Role = "support"
	RoleFinance          Role = "finance"
	RoleMerchant         Role = "merchant"
	RoleAnonymous        Role = "anonymous"
)

// AuthenticatedRoles lists every role an actual login can carry.
var AuthenticatedRoles = []Role{
	RoleParent,
	RoleGuardian,
	RoleStudent,
	RoleInstitutionAdmin,
	RoleSuperAdmin,
	RoleSupport,
	RoleFinance,
	RoleMerchant,
}

// AdminRoles lists the staff-facing roles.
var AdminRoles = []Role{
	RoleInstitutionAdmin,
	RoleSuperAdmin,
	RoleSupport,
	RoleFinance,
	RoleMerchant,
}

// PayerRoles lists the fee-paying side of the platform.
var PayerRoles = []Role{
	RoleParent,
	RoleGuardian,
	RoleStudent,
}

var validRoles = func() map[Role]struct{} {
	set := make(map[Role]struct{}, len(AuthenticatedRoles)+1)
	for _, r := range AuthenticatedRoles {
		set[r] = struct{}{}
	}
	set[RoleAnonymous] = struct{}{}
	return set
}()

// ParseRole maps a raw string onto the closed role set. Unknown or empty
// values collapse to RoleAnonymous so that a tampered cookie or a stale
// enum value can never widen access.
func ParseRole(raw string) Role {
	r := Role(raw)
	if _, ok := validRoles[r]; ok {
		return r
	}
	return RoleAnonymous
}

// Valid reports whether r belongs to the closed enumeration.
func (r Role) Valid() bool {
	_, ok := validRoles[r]
	return ok
}

// Authenticated reports whether r represents a logged-in actor.
func (r Role) Authenticated() bool {
	return r.Valid() && r != RoleAnonymous
}

// In reports whether r is a member of the given role list.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
