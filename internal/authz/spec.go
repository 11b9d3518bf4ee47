package authz

import (
	"fmt"
	"strings"

	"crm-console/internal/model"
)

// QuerySpec is the set of constraints a guard or menu entry carries.
//
// A nil field is absent and passes. A non-nil empty list is present and
// denies non-super users. List fields are never omitempty so an explicit []
// survives encoding.
type QuerySpec struct {
	Permission    *string  `json:"permission,omitempty" yaml:"permission,omitempty"`
	Permissions   []string `json:"permissions" yaml:"permissions"`
	AnyPermission []string `json:"anyPermission" yaml:"anyPermission"`
	RoleID        *uint    `json:"roleId,omitempty" yaml:"roleId,omitempty"`
	RoleIDs       []uint   `json:"roleIds" yaml:"roleIds"`
	AnyRoleID     []uint   `json:"anyRoleId" yaml:"anyRoleId"`
}

// Perm requires a single permission slug.
func Perm(slug string) QuerySpec {
	return QuerySpec{Permission: &slug}
}

// AllOf requires every slug.
func AllOf(slugs ...string) QuerySpec {
	return QuerySpec{Permissions: append([]string{}, slugs...)}
}

// AnyOf requires at least one slug.
func AnyOf(slugs ...string) QuerySpec {
	return QuerySpec{AnyPermission: append([]string{}, slugs...)}
}

// Role requires a single role id.
func Role(id uint) QuerySpec {
	return QuerySpec{RoleID: &id}
}

// AllRoles requires every role id.
func AllRoles(ids ...uint) QuerySpec {
	return QuerySpec{RoleIDs: append([]uint{}, ids...)}
}

// AnyRole requires at least one role id.
func AnyRole(ids ...uint) QuerySpec {
	return QuerySpec{AnyRoleID: append([]uint{}, ids...)}
}

// And merges fragments. For each field the last present value wins.
func And(specs ...QuerySpec) QuerySpec {
	var out QuerySpec
	for _, s := range specs {
		if s.Permission != nil {
			out.Permission = s.Permission
		}
		if s.Permissions != nil {
			out.Permissions = s.Permissions
		}
		if s.AnyPermission != nil {
			out.AnyPermission = s.AnyPermission
		}
		if s.RoleID != nil {
			out.RoleID = s.RoleID
		}
		if s.RoleIDs != nil {
			out.RoleIDs = s.RoleIDs
		}
		if s.AnyRoleID != nil {
			out.AnyRoleID = s.AnyRoleID
		}
	}
	return out
}

// IsEmpty reports whether no constraint is present.
func (s QuerySpec) IsEmpty() bool {
	return s.Permission == nil && s.Permissions == nil && s.AnyPermission == nil &&
		s.RoleID == nil && s.RoleIDs == nil && s.AnyRoleID == nil
}

func (s QuerySpec) String() string {
	var parts []string
	if s.Permission != nil {
		parts = append(parts, "permission="+*s.Permission)
	}
	if s.Permissions != nil {
		parts = append(parts, "permissions="+fmt.Sprint(s.Permissions))
	}
	if s.AnyPermission != nil {
		parts = append(parts, "anyPermission="+fmt.Sprint(s.AnyPermission))
	}
	if s.RoleID != nil {
		parts = append(parts, fmt.Sprintf("roleId=%d", *s.RoleID))
	}
	if s.RoleIDs != nil {
		parts = append(parts, "roleIds="+fmt.Sprint(s.RoleIDs))
	}
	if s.AnyRoleID != nil {
		parts = append(parts, "anyRoleId="+fmt.Sprint(s.AnyRoleID))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Decide is the composite decision: super users pass, otherwise every present
// field must hold.
func Decide(u *model.User, s QuerySpec) bool {
	if IsSuperUser(u) {
		return true
	}
	if s.Permission != nil && !HasPermission(u, *s.Permission) {
		return false
	}
	if s.Permissions != nil && !HasAllPermissions(u, s.Permissions) {
		return false
	}
	if s.AnyPermission != nil && !HasAnyPermission(u, s.AnyPermission) {
		return false
	}
	if s.RoleID != nil && !HasRoleByID(u, *s.RoleID) {
		return false
	}
	if s.RoleIDs != nil && !HasAllRolesByID(u, s.RoleIDs) {
		return false
	}
	if s.AnyRoleID != nil && !HasAnyRoleByID(u, s.AnyRoleID) {
		return false
	}
	return true
}

// Render picks children when the decision holds and fallback otherwise.
func Render[T any](u *model.User, s QuerySpec, children, fallback T) T {
	if Decide(u, s) {
		return children
	}
	return fallback
}
