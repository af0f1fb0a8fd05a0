package authz

import "time"

// Role is a named back-office authorization level.
type Role string

const (
	// RoleSuperAdmin has unrestricted access to every route and action.
	RoleSuperAdmin Role = "SUPER_ADMIN"
	// RoleManager runs day-to-day merchandising and fulfilment.
	RoleManager Role = "MANAGER"
	// RoleStaff handles stock and order processing with reduced rights.
	RoleStaff Role = "STAFF"
	// RoleAuditor has read access to compliance surfaces only.
	RoleAuditor Role = "AUDITOR"
)

// AllRoles lists every defined role, used to assert table totality.
var AllRoles = []Role{RoleSuperAdmin, RoleManager, RoleStaff, RoleAuditor}

// IsValidRole reports whether the role is one of the defined values.
func IsValidRole(role Role) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRole converts a stored role string into a Role.
// Unknown values yield an empty Role, which is granted nothing.
func ParseRole(raw string) Role {
	role := Role(raw)
	if !IsValidRole(role) {
		return ""
	}
	return role
}

// Resource is a protected entity category used for action-level checks.
type Resource string

const (
	ResourceProduct    Resource = "product"
	ResourceCategory   Resource = "category"
	ResourceOrder      Resource = "order"
	ResourceInventory  Resource = "inventory"
	ResourceCompliance Resource = "compliance"
	ResourceAuditLog   Resource = "auditLog"
)

// Action is one of the four permitted operations on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Session is the snapshot of an authenticated back-office actor.
// The role is fixed when the session is issued; a role change requires
// a fresh login.
type Session struct {
	UserID       string
	DisplayName  string
	Role         Role
	LastActivity time.Time
}
