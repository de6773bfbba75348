package model

// Role is the membership role of a profile inside its organization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

// Capability names an action a role may be allowed to perform.
type Capability string

const (
	CapManageInventory  Capability = "manage_inventory"
	CapViewReports      Capability = "view_reports"
	CapEditOrganization Capability = "edit_organization"
	CapManageUsers      Capability = "manage_users"
	CapViewAuditLog     Capability = "view_audit_log"
)

// Manager and operator currently share the same capability set.
var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapManageInventory,
		CapViewReports,
		CapEditOrganization,
		CapManageUsers,
		CapViewAuditLog,
	},
	RoleManager: {
		CapManageInventory,
		CapViewReports,
	},
	RoleOperator: {
		CapManageInventory,
		CapViewReports,
	},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// Capabilities returns a copy of the capabilities granted to the role.
func (r Role) Capabilities() []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
