// Package accesscontrol centralizes every authorization decision in the
// application. All decisions are pure functions over the acting role and
// ownership facts; nothing here performs I/O. Handlers and services must
// consult this package instead of comparing role strings inline.
package accesscontrol

import "chantier_portal_backend/platform/apperr"

// Role is one of the fixed application roles.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleSuperviseur   Role = "superviseur"
	RoleChargeAffaire Role = "charge_affaire"
	RolePoseur        Role = "poseur"
)

// AllRoles lists every role in descending privilege order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSuperviseur, RoleChargeAffaire, RolePoseur}
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperviseur, RoleChargeAffaire, RolePoseur:
		return true
	}
	return false
}

// Level returns the privilege level, higher is more privileged.
// Used for ordering in role-management screens and elevation checks.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleSuperviseur:
		return 3
	case RoleChargeAffaire:
		return 2
	case RolePoseur:
		return 1
	}
	return 0
}

// AtLeast reports whether r has privilege greater than or equal to other.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw role string (e.g. from a JWT claim) to a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", apperr.Forbidden("unknown role")
	}
	return role, nil
}
