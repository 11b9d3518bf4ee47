package model

import "strings"

// Role is a named bundle of permissions
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Sentinel identifiers. Holding either one bypasses every authorization check.
const (
	SuperRoleID uint = 1
	SuperUserID uint = 1
)

// Default role ids
const (
	RoleSuperAdmin uint = SuperRoleID
	RoleManager    uint = 2
	RoleAgent      uint = 3
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		ID:          RoleSuperAdmin,
		Name:        "Super Admin",
		Description: "Full access to every organization and screen",
	},
	{
		ID:          RoleManager,
		Name:        "Manager",
		Description: "Manages the business screens of an organization",
	},
	{
		ID:          RoleAgent,
		Name:        "Agent",
		Description: "Read access to the front office screens",
	},
}

// DefaultRolePermissions picks the default permission set for a seeded role
func DefaultRolePermissions(roleID uint, all []Permission) []Permission {
	picked := make([]Permission, 0, len(all))
	for _, p := range all {
		switch roleID {
		case RoleManager:
			if !strings.HasPrefix(p.Slug, "organization_") &&
				!strings.HasPrefix(p.Slug, "role_") &&
				!strings.HasPrefix(p.Slug, "user_") {
				picked = append(picked, p)
			}
		case RoleAgent:
			switch p.Slug {
			case "customer_Access", "hotel_Access", "doctor_Access", "service_Access":
				picked = append(picked, p)
			}
		}
	}
	return picked
}
