package authz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-console/internal/model"
)

func TestDecideEmptySpecAlwaysPasses(t *testing.T) {
	assert.True(t, Decide(nil, QuerySpec{}))
	assert.True(t, Decide(userWithRoles(3), QuerySpec{}))
	assert.True(t, Decide(hotelUser(), QuerySpec{}))
}

func TestDecideAndsPresentFields(t *testing.T) {
	u := hotelUser()

	assert.True(t, Decide(u, Perm("hotel_Access")))
	assert.False(t, Decide(u, Perm("hotel_Delete")))
	assert.True(t, Decide(u, And(Perm("hotel_Access"), Role(5))))
	assert.False(t, Decide(u, And(Perm("hotel_Access"), Role(6))))
	assert.True(t, Decide(u, And(AnyOf("hotel_Delete", "hotel_Edit"), AnyRole(4, 5))))
	assert.False(t, Decide(u, And(AllOf("hotel_Access"), AllRoles(5, 6))))
}

func TestDecideExplicitEmptyListDenies(t *testing.T) {
	u := hotelUser()
	assert.False(t, Decide(u, AllOf()))
	assert.False(t, Decide(u, AnyOf()))
	assert.False(t, Decide(u, AllRoles()))
	assert.False(t, Decide(u, AnyRole()))
	assert.True(t, Decide(userWithRoles(model.SuperUserID), AllOf()))
}

func TestDecideNilUserWithConstraint(t *testing.T) {
	assert.False(t, Decide(nil, Perm("x")))
}

func TestQuerySpecJSONKeepsAbsentAndEmptyApart(t *testing.T) {
	var absent QuerySpec
	require.NoError(t, json.Unmarshal([]byte(`{"permission":"x"}`), &absent))
	assert.Nil(t, absent.Permissions)
	assert.True(t, Decide(hotelUser(), And(absent, Perm("hotel_Access"))))

	var empty QuerySpec
	require.NoError(t, json.Unmarshal([]byte(`{"permissions":[]}`), &empty))
	require.NotNil(t, empty.Permissions)
	assert.False(t, Decide(hotelUser(), empty))

	raw, err := json.Marshal(AllOf())
	require.NoError(t, err)
	var back QuerySpec
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.NotNil(t, back.Permissions)
	assert.False(t, back.IsEmpty())
}

func TestRender(t *testing.T) {
	assert.Equal(t, "edit", Render(hotelUser(), Perm("hotel_Edit"), "edit", ""))
	assert.Equal(t, "", Render(hotelUser(), Perm("hotel_Delete"), "delete", ""))
}

func TestQuerySpecString(t *testing.T) {
	assert.Equal(t, "{}", QuerySpec{}.String())
	assert.Equal(t, "{permission=x roleIds=[1 2]}", And(Perm("x"), AllRoles(1, 2)).String())
}
