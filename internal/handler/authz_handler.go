package handler

import (
	"crm-console/internal/authz"
	"crm-console/internal/middleware"
	"crm-console/internal/model"

	"github.com/gofiber/fiber/v2"
)

// AuthzHandler exposes the evaluator to the console.
type AuthzHandler struct {
	menu []authz.MenuItem
}

func NewAuthzHandler(menu []authz.MenuItem) *AuthzHandler {
	return &AuthzHandler{menu: menu}
}

// MeResponse is the current user as the console sees it.
type MeResponse struct {
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"`
	IsSuperUser bool               `json:"is_super_user"`
}

// Me returns the session user
// GET /api/v1/me
func (h *AuthzHandler) Me(c *fiber.Ctx) error {
	user := middleware.UserFrom(c)
	if user == nil {
		return c.Status(fiber.StatusAccepted).JSON(middleware.Skeleton)
	}
	return c.JSON(MeResponse{
		User:        user.ToResponse(),
		Permissions: authz.PermissionSlugs(user),
		IsSuperUser: authz.IsSuperUser(user),
	})
}

// MyPermissions lists the effective permissions, optionally narrowed to one
// category prefix
// GET /api/v1/me/permissions?category=hotel
func (h *AuthzHandler) MyPermissions(c *fiber.Ctx) error {
	user := middleware.UserFrom(c)
	category := c.Query("category")
	if category == "" {
		return c.JSON(authz.AllUserPermissions(user))
	}
	return c.JSON(fiber.Map{
		"category":    category,
		"has_any":     authz.HasPermissionInCategory(user, category),
		"permissions": authz.UserPermissionsByCategory(user, category),
	})
}

// Check evaluates a query spec for the session user. Absent fields are
// ignored; an empty list denies.
// POST /api/v1/authz/check
func (h *AuthzHandler) Check(c *fiber.Ctx) error {
	var spec authz.QuerySpec
	if err := c.BodyParser(&spec); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	return c.JSON(fiber.Map{
		"allowed": authz.Decide(middleware.UserFrom(c), spec),
		"spec":    spec.String(),
	})
}

// Menu returns the navigation tree pruned for the session user
// GET /api/v1/menu
func (h *AuthzHandler) Menu(c *fiber.Ctx) error {
	return c.JSON(authz.FilterMenu(middleware.UserFrom(c), h.menu))
}

// Forbidden is the page the route guard redirects to
// GET /403
func Forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "You do not have permission to view this page",
		"code":  "forbidden",
	})
}
