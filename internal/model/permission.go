package model

import "strings"

// Permission is a single capability identified by its slug, e.g. "customer_Access"
type Permission struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Name string `gorm:"type:varchar(150)" json:"name"`
}

// Permission categories. Slugs are "<category>_<Action>".
var PermissionCategories = []string{
	"customer",
	"hotel",
	"doctor",
	"service",
	"status",
	"template",
	"campaign",
	"setting",
	"organization",
	"role",
	"user",
}

const (
	ActionAccess = "Access"
	ActionCreate = "Create"
	ActionEdit   = "Edit"
	ActionDelete = "Delete"
)

// Permission actions appended to every category
var PermissionActions = []string{ActionAccess, ActionCreate, ActionEdit, ActionDelete}

// PermissionSlug builds the slug for a category/action pair
func PermissionSlug(category, action string) string {
	return category + "_" + action
}

// DefaultPermissions expands every category with every action
func DefaultPermissions() []Permission {
	perms := make([]Permission, 0, len(PermissionCategories)*len(PermissionActions))
	for _, category := range PermissionCategories {
		for _, action := range PermissionActions {
			perms = append(perms, Permission{
				Slug: PermissionSlug(category, action),
				Name: action + " " + strings.ToUpper(category[:1]) + category[1:],
			})
		}
	}
	return perms
}
