// Package permission defines the closed role set used across tenants and
// the static mapping from roles to permission strings.
//
// Permissions are resource:action pairs ("members:read"). A user's effective
// permission set is the union of the role-implied set and any explicitly
// granted permissions. The super_admin role maps to a single wildcard that
// passes every check.
package permission
