package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crm-console/internal/model"
)

func perm(id uint, slug string) model.Permission {
	return model.Permission{ID: id, Slug: slug}
}

func userWithRoles(id uint, roles ...model.Role) *model.User {
	u := &model.User{Roles: roles}
	u.ID = id
	return u
}

func hotelUser() *model.User {
	return userWithRoles(42, model.Role{
		ID:          5,
		Permissions: []model.Permission{perm(10, "hotel_Access"), perm(11, "hotel_Edit")},
	})
}

func TestIsSuperUser(t *testing.T) {
	assert.False(t, IsSuperUser(nil))
	assert.True(t, IsSuperUser(userWithRoles(model.SuperUserID)))
	assert.True(t, IsSuperUser(userWithRoles(7, model.Role{ID: 4}, model.Role{ID: model.SuperRoleID})))
	assert.False(t, IsSuperUser(userWithRoles(7, model.Role{ID: 4})))
}

func TestSuperUserPassesEveryCheck(t *testing.T) {
	supers := map[string]*model.User{
		"sentinel user": userWithRoles(model.SuperUserID),
		"sentinel role": userWithRoles(9, model.Role{ID: model.SuperRoleID}),
	}
	for name, u := range supers {
		t.Run(name, func(t *testing.T) {
			assert.True(t, HasPermission(u, "anything"))
			assert.True(t, HasAnyPermission(u, nil))
			assert.True(t, HasAnyPermission(u, []string{}))
			assert.True(t, HasAllPermissions(u, []string{}))
			assert.True(t, HasRoleByID(u, 99))
			assert.True(t, HasAnyRoleByID(u, []uint{}))
			assert.True(t, HasAllRolesByID(u, []uint{}))
			assert.True(t, HasPermissionInCategory(u, "nothing_"))
		})
	}
}

func TestUserWithoutRolesFailsEveryCheck(t *testing.T) {
	u := userWithRoles(3)
	assert.False(t, HasPermission(u, "hotel_Access"))
	assert.False(t, HasAnyPermission(u, []string{"hotel_Access"}))
	assert.False(t, HasAllPermissions(u, []string{"hotel_Access"}))
	assert.False(t, HasRoleByID(u, 5))
	assert.False(t, HasAnyRoleByID(u, []uint{5}))
	assert.False(t, HasAllRolesByID(u, []uint{5}))
	assert.False(t, HasPermissionInCategory(u, "hotel_"))
}

func TestNilUserFailsEveryCheck(t *testing.T) {
	assert.False(t, HasPermission(nil, "hotel_Access"))
	assert.False(t, HasAnyPermission(nil, []string{"hotel_Access"}))
	assert.False(t, HasAllPermissions(nil, []string{"hotel_Access"}))
	assert.False(t, HasRoleByID(nil, 1))
	assert.False(t, HasPermissionInCategory(nil, "hotel_"))
	assert.Empty(t, AllUserPermissions(nil))
}

func TestExplicitEmptyListIsDeny(t *testing.T) {
	u := hotelUser()
	assert.False(t, HasAllPermissions(u, []string{}))
	assert.False(t, HasAnyPermission(u, []string{}))
	assert.False(t, HasAllRolesByID(u, []uint{}))
	assert.False(t, HasAnyRoleByID(u, []uint{}))
}

func TestHotelScenario(t *testing.T) {
	u := hotelUser()
	assert.True(t, HasPermission(u, "hotel_Access"))
	assert.False(t, HasPermission(u, "hotel_Delete"))
	assert.False(t, HasAllPermissions(u, []string{"hotel_Access", "hotel_Delete"}))
	assert.True(t, HasAnyPermission(u, []string{"hotel_Access", "hotel_Delete"}))
	assert.True(t, HasAllPermissions(u, []string{"hotel_Access", "hotel_Edit"}))
}

func TestRoleChecks(t *testing.T) {
	u := userWithRoles(8, model.Role{ID: 2}, model.Role{ID: 3})
	assert.True(t, HasRoleByID(u, 2))
	assert.False(t, HasRoleByID(u, 4))
	assert.True(t, HasAnyRoleByID(u, []uint{4, 3}))
	assert.False(t, HasAnyRoleByID(u, []uint{4, 5}))
	assert.True(t, HasAllRolesByID(u, []uint{2, 3}))
	assert.False(t, HasAllRolesByID(u, []uint{2, 4}))
}

func TestAllUserPermissionsDeduplicates(t *testing.T) {
	shared := perm(10, "hotel_Access")
	u := userWithRoles(8,
		model.Role{ID: 2, Permissions: []model.Permission{shared, perm(12, "doctor_Access")}},
		model.Role{ID: 3, Permissions: []model.Permission{perm(11, "hotel_Edit"), shared}},
	)

	perms := AllUserPermissions(u)
	assert.Len(t, perms, 3)
	assert.Equal(t, []string{"hotel_Access", "hotel_Edit", "doctor_Access"}, PermissionSlugs(u))
}

func TestCategoryQueries(t *testing.T) {
	u := userWithRoles(8, model.Role{ID: 2, Permissions: []model.Permission{
		perm(10, "hotel_Access"), perm(11, "hotel_Edit"), perm(12, "doctor_Access"),
	}})

	hotel := UserPermissionsByCategory(u, "hotel_")
	assert.Len(t, hotel, 2)
	assert.True(t, HasPermissionInCategory(u, "doctor_"))
	assert.False(t, HasPermissionInCategory(u, "campaign_"))
	assert.Empty(t, UserPermissionsByCategory(u, "campaign_"))
}
