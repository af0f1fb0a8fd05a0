package authz

import (
	"fmt"
	"strings"
	"time"
)

// PathWildcard grants access to every route when present in a role's
// prefix set.
const PathWildcard = "*"

// DefaultSessionTimeout is the idle window after which a session must
// re-authenticate.
const DefaultSessionTimeout = 30 * time.Minute

// routePrefixes maps each role to the route prefixes it may reach.
// Prefix match, not exact match: a role allowed "/admin/orders" also
// reaches "/admin/orders/123/edit".
var routePrefixes = map[Role][]string{
	RoleSuperAdmin: {PathWildcard},
	RoleManager: {
		"/admin/products",
		"/admin/categories",
		"/admin/orders",
		"/admin/inventory",
		"/admin/customers",
		"/admin/reports",
	},
	RoleStaff: {
		"/admin/products",
		"/admin/orders",
		"/admin/inventory",
	},
	RoleAuditor: {
		"/admin/compliance",
		"/admin/reports",
	},
}

type actionSet map[Action]struct{}

func grant(actions ...Action) actionSet {
	set := make(actionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

var allActions = grant(ActionRead, ActionCreate, ActionUpdate, ActionDelete)

// actionGrants maps (resource, role) to the allowed action set. Every
// resource row covers every role so lookups stay total; an empty set
// means explicit denial.
var actionGrants = map[Resource]map[Role]actionSet{
	ResourceProduct: {
		RoleSuperAdmin: allActions,
		RoleManager:    grant(ActionRead, ActionCreate, ActionUpdate),
		RoleStaff:      grant(ActionRead, ActionUpdate),
		RoleAuditor:    grant(ActionRead),
	},
	ResourceCategory: {
		RoleSuperAdmin: allActions,
		RoleManager:    grant(ActionRead, ActionCreate, ActionUpdate),
		RoleStaff:      grant(ActionRead),
		RoleAuditor:    grant(ActionRead),
	},
	ResourceOrder: {
		RoleSuperAdmin: allActions,
		RoleManager:    grant(ActionRead, ActionUpdate),
		RoleStaff:      grant(ActionRead, ActionUpdate),
		RoleAuditor:    grant(ActionRead),
	},
	ResourceInventory: {
		RoleSuperAdmin: allActions,
		RoleManager:    grant(ActionRead, ActionUpdate),
		RoleStaff:      grant(ActionRead, ActionUpdate),
		RoleAuditor:    grant(ActionRead),
	},
	ResourceCompliance: {
		RoleSuperAdmin: allActions,
		RoleManager:    grant(ActionRead),
		RoleStaff:      grant(),
		RoleAuditor:    grant(ActionRead),
	},
	ResourceAuditLog: {
		RoleSuperAdmin: grant(ActionRead),
		RoleManager:    grant(),
		RoleStaff:      grant(),
		RoleAuditor:    grant(ActionRead),
	},
}

func init() {
	// The tables are static configuration; a missing role entry would
	// turn a deny decision into a silent table gap, so fail startup.
	for _, role := range AllRoles {
		if _, ok := routePrefixes[role]; !ok {
			panic(fmt.Sprintf("authz: route prefixes missing role %s", role))
		}
	}
	for resource, grants := range actionGrants {
		for _, role := range AllRoles {
			if _, ok := grants[role]; !ok {
				panic(fmt.Sprintf("authz: action grants for %s missing role %s", resource, role))
			}
		}
	}
}

// CanAccessRoute reports whether the role may reach the given route
// path. The path must be normalized: leading slash, no query string.
// Unknown roles are denied everything.
func CanAccessRoute(role Role, pathname string) bool {
	prefixes, ok := routePrefixes[role]
	if !ok {
		return false
	}
	for _, prefix := range prefixes {
		if prefix == PathWildcard {
			return true
		}
		if strings.HasPrefix(pathname, prefix) {
			return true
		}
	}
	return false
}

// CanPerformAction reports whether the role may perform the action on
// the resource. Unknown resources, roles, and actions all deny.
func CanPerformAction(role Role, resource Resource, action Action) bool {
	grants, ok := actionGrants[resource]
	if !ok {
		return false
	}
	set, ok := grants[role]
	if !ok {
		return false
	}
	_, allowed := set[action]
	return allowed
}

// IsSessionExpired reports whether the session's idle window has
// elapsed at the given instant. It never mutates the session; callers
// refresh LastActivity on each authenticated request.
func IsSessionExpired(sess Session, timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return now.Sub(sess.LastActivity) > timeout
}
