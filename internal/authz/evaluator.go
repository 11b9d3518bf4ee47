// Package authz decides what a user may reach in the console. It is the only
// place where permission slugs and role ids are compared; guards, the menu and
// handlers all ask it.
package authz

import (
	"sort"
	"strings"

	"crm-console/internal/model"
)

// IsSuperUser reports whether u bypasses every check, either by being the
// sentinel user or by holding the sentinel role.
func IsSuperUser(u *model.User) bool {
	if u == nil {
		return false
	}
	if u.ID == model.SuperUserID {
		return true
	}
	for _, r := range u.Roles {
		if r.ID == model.SuperRoleID {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of u's roles carries slug.
func HasPermission(u *model.User, slug string) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 {
		return false
	}
	return roleHasSlug(u.Roles, slug)
}

// HasAnyPermission is true when at least one slug is held. An empty list is a deny.
func HasAnyPermission(u *model.User, slugs []string) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 || len(slugs) == 0 {
		return false
	}
	for _, slug := range slugs {
		if roleHasSlug(u.Roles, slug) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true when every slug is held. An empty list is a deny.
func HasAllPermissions(u *model.User, slugs []string) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 || len(slugs) == 0 {
		return false
	}
	for _, slug := range slugs {
		if !roleHasSlug(u.Roles, slug) {
			return false
		}
	}
	return true
}

// HasRoleByID reports whether u holds the role with the given id.
func HasRoleByID(u *model.User, id uint) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 {
		return false
	}
	return holdsRole(u.Roles, id)
}

// HasAnyRoleByID is true when u holds at least one of ids. An empty list is a deny.
func HasAnyRoleByID(u *model.User, ids []uint) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 || len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if holdsRole(u.Roles, id) {
			return true
		}
	}
	return false
}

// HasAllRolesByID is true when u holds every role in ids. An empty list is a deny.
func HasAllRolesByID(u *model.User, ids []uint) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	if len(u.Roles) == 0 || len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !holdsRole(u.Roles, id) {
			return false
		}
	}
	return true
}

// AllUserPermissions returns the union of the permissions of u's roles,
// de-duplicated by permission id and ordered by id.
func AllUserPermissions(u *model.User) []model.Permission {
	if u == nil {
		return []model.Permission{}
	}
	seen := make(map[uint]model.Permission)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p.ID]; !ok {
				seen[p.ID] = p
			}
		}
	}
	perms := make([]model.Permission, 0, len(seen))
	for _, p := range seen {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms
}

// UserPermissionsByCategory narrows AllUserPermissions to slugs starting with prefix.
func UserPermissionsByCategory(u *model.User, prefix string) []model.Permission {
	all := AllUserPermissions(u)
	filtered := make([]model.Permission, 0, len(all))
	for _, p := range all {
		if strings.HasPrefix(p.Slug, prefix) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// HasPermissionInCategory reports whether u holds any permission of the category.
func HasPermissionInCategory(u *model.User, prefix string) bool {
	if u == nil {
		return false
	}
	if IsSuperUser(u) {
		return true
	}
	return len(UserPermissionsByCategory(u, prefix)) > 0
}

// PermissionSlugs flattens AllUserPermissions into slugs.
func PermissionSlugs(u *model.User) []string {
	perms := AllUserPermissions(u)
	slugs := make([]string, len(perms))
	for i, p := range perms {
		slugs[i] = p.Slug
	}
	return slugs
}

func roleHasSlug(roles []model.Role, slug string) bool {
	for _, r := range roles {
		for _, p := range r.Permissions {
			if p.Slug == slug {
				return true
			}
		}
	}
	return false
}

func holdsRole(roles []model.Role, id uint) bool {
	for _, r := range roles {
		if r.ID == id {
			return true
		}
	}
	return false
}
