package permission

import "sort"

// Implied returns the static permission list for a role. Unknown roles map
// to nil, so a corrupted role string fails closed.
func Implied(role Role) []string {
	switch role {
	case RoleSuperAdmin:
		return []string{Wildcard}
	case RoleAdmin:
		return []string{
			"members:read", "members:write", "members:delete",
			"events:read", "events:write", "events:manage",
			"prayers:read", "prayers:write", "prayers:manage",
			"donations:read", "donations:manage",
			"analytics:read",
			"files:read", "files:write", "files:delete",
			"communications:send",
			"chat:use",
			"users:manage",
			"settings:manage",
		}
	case RolePastor:
		return []string{
			"members:read", "members:write",
			"events:read", "events:write", "events:manage",
			"prayers:read", "prayers:write", "prayers:manage",
			"analytics:read",
			"files:read", "files:write",
			"communications:send",
			"chat:use",
		}
	case RoleStaff:
		return []string{
			"members:read", "members:write",
			"events:read", "events:write",
			"prayers:read", "prayers:write",
			"files:read", "files:write",
			"chat:use",
		}
	case RoleVolunteer:
		return []string{
			"members:read",
			"events:read",
			"prayers:read",
			"chat:use",
		}
	case RoleMember:
		return []string{
			"events:read",
			"prayers:write",
			"chat:use",
		}
	}
	return nil
}

// Effective computes the deduplicated union of the role-implied permissions
// and the explicitly granted ones. The result is sorted so repeated calls
// with the same inputs produce the same slice regardless of input order.
func Effective(role Role, explicit []string) []string {
	seen := make(map[string]struct{})
	for _, p := range Implied(role) {
		seen[p] = struct{}{}
	}
	for _, p := range explicit {
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the effective set satisfies a single required
// permission. The wildcard dominates every check.
func Has(effective []string, required string) bool {
	for _, p := range effective {
		if p == Wildcard || p == required {
			return true
		}
	}
	return false
}

// HasAny reports whether the effective set satisfies at least one of the
// required permissions. An empty requirement list passes.
func HasAny(effective []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if Has(effective, r) {
			return true
		}
	}
	return false
}
