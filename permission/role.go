package permission

// Role is a closed enum of tenant user roles. Adding a role means extending
// the switch in Implied, which the exhaustive default keeps honest: an
// unknown role implies no permissions at all.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RolePastor     Role = "pastor"
	RoleStaff      Role = "staff"
	RoleVolunteer  Role = "volunteer"
	RoleMember     Role = "member"
)

// Wildcard grants every permission unconditionally.
const Wildcard = "*"

// ParseRole maps a stored role string onto the closed enum.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RolePastor, RoleStaff, RoleVolunteer, RoleMember:
		return Role(s), true
	}
	return "", false
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Elevated reports whether the role bypasses resource ownership checks.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RolePastor
}
