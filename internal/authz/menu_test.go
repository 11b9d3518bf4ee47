package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crm-console/internal/model"
)

func sampleMenu() []MenuItem {
	return []MenuItem{
		{Title: "Dashboard", URL: "/"},
		{Title: "Hotels", URL: "/hotels", QuerySpec: Perm("hotel_Access")},
		{Title: "Campaigns", URL: "/campaigns", QuerySpec: Perm("campaign_Access")},
		{
			Title: "Settings",
			Items: []MenuItem{
				{Title: "Roles", URL: "/settings/roles", QuerySpec: Perm("role_Access")},
				{Title: "Hotel options", URL: "/settings/hotels", QuerySpec: Perm("hotel_Edit")},
			},
		},
		{
			Title:     "Admin",
			QuerySpec: Role(model.RoleManager),
			Items: []MenuItem{
				{Title: "Hotel audit", URL: "/admin/hotels", QuerySpec: Perm("hotel_Access")},
			},
		},
	}
}

func titles(items []MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestFilterMenuNilUser(t *testing.T) {
	filtered := FilterMenu(nil, sampleMenu())
	assert.NotNil(t, filtered)
	assert.Empty(t, filtered)
}

func TestFilterMenuSuperUserUnchanged(t *testing.T) {
	menu := sampleMenu()
	assert.Equal(t, menu, FilterMenu(userWithRoles(model.SuperUserID), menu))
}

func TestFilterMenuPrunes(t *testing.T) {
	filtered := FilterMenu(hotelUser(), sampleMenu())

	assert.Equal(t, []string{"Dashboard", "Hotels", "Settings"}, titles(filtered))
	assert.Equal(t, []string{"Hotel options"}, titles(filtered[2].Items))
}

func TestFilterMenuDropsParentWithoutReachableChildren(t *testing.T) {
	menu := []MenuItem{{
		Title: "Parent",
		Items: []MenuItem{{Title: "Child A", QuerySpec: Perm("x")}},
	}}

	assert.Empty(t, FilterMenu(hotelUser(), menu))
}

func TestFilterMenuIsIdempotent(t *testing.T) {
	u := hotelUser()
	once := FilterMenu(u, sampleMenu())
	assert.Equal(t, once, FilterMenu(u, once))
}
