package auth

// Role is an admin role with a total order used for authorization checks.
type Role string

const (
	RoleReader     Role = "reader"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Rank returns the role's position in the hierarchy. Unknown roles rank 0
// and never pass an AtLeast check.
func (r Role) Rank() int {
	switch r {
	case RoleReader:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether r is a known role ranking at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() > 0 && r.Rank() >= min.Rank()
}

// ParseRole validates a role string from a form or database row.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Rank() > 0
}
