package auth

import "garrison/pkg/apperr"

// Role is the closed set of caller roles. Uppercase tags are canonical.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleBaseCommander    Role = "BASE_COMMANDER"
	RoleLogisticsOfficer Role = "LOGISTICS_OFFICER"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleBaseCommander, RoleLogisticsOfficer:
		return Role(s), nil
	default:
		return "", apperr.InvalidArgument("invalid role %q", s)
	}
}

// Actor is the immutable descriptor of an authenticated caller.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Base string `json:"base"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanAccessBase reports whether the actor may touch records scoped to base.
// Admins reach every base; everyone else is confined to their home base.
func (a Actor) CanAccessBase(base string) bool {
	return a.IsAdmin() || a.Base == base
}

// CanAccessEitherBase is the read rule for transfers, which are visible from
// both endpoints of the move.
func (a Actor) CanAccessEitherBase(fromBase, toBase string) bool {
	return a.IsAdmin() || a.Base == fromBase || a.Base == toBase
}

// ReadScope returns the base filter for list/metrics queries. Admins see all
// bases (empty base, all=true is not needed; empty string means unscoped).
func (a Actor) ReadScope() string {
	if a.IsAdmin() {
		return ""
	}
	return a.Base
}
