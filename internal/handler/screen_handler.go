package handler

import (
	"crm-console/internal/authz"
	"crm-console/internal/middleware"
	"crm-console/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Screen is a tenant-scoped console page backed by one permission category.
type Screen struct {
	Name     string
	Category string
}

// Screens lists the console pages in menu order.
var Screens = []Screen{
	{Name: "customers", Category: "customer"},
	{Name: "hotels", Category: "hotel"},
	{Name: "doctors", Category: "doctor"},
	{Name: "services", Category: "service"},
	{Name: "statuses", Category: "status"},
	{Name: "templates", Category: "template"},
	{Name: "campaigns", Category: "campaign"},
	{Name: "settings", Category: "setting"},
}

// Spec is the route guard check of the screen.
func (s Screen) Spec() authz.QuerySpec {
	return authz.Perm(model.PermissionSlug(s.Category, model.ActionAccess))
}

// Widget is a dashboard card shown only to users passing Spec.
type Widget struct {
	Name string
	Spec authz.QuerySpec
}

// Widgets lists the dashboard cards.
var Widgets = []Widget{
	{Name: "customers", Spec: authz.Perm("customer_Access")},
	{Name: "campaigns", Spec: authz.Perm("campaign_Access")},
	{Name: "bookings", Spec: authz.AnyOf("hotel_Access", "doctor_Access", "service_Access")},
	{Name: "team", Spec: authz.AllOf("user_Access", "role_Access")},
	{Name: "organizations", Spec: authz.Role(model.SuperRoleID)},
}

type ScreenHandler struct{}

func NewScreenHandler() *ScreenHandler {
	return &ScreenHandler{}
}

// ScreenResponse describes a page and which of its actions the user gets.
type ScreenResponse struct {
	Screen       string              `json:"screen"`
	Organization *model.Organization `json:"organization"`
	Actions      map[string]bool     `json:"actions"`
}

// Show renders screen s. It runs behind the route and organization guards.
// GET /api/v1/screens/:screen
func (h *ScreenHandler) Show(s Screen) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := middleware.UserFrom(c)
		actions := make(map[string]bool, 3)
		for _, action := range []string{model.ActionCreate, model.ActionEdit, model.ActionDelete} {
			spec := authz.Perm(model.PermissionSlug(s.Category, action))
			actions[action] = authz.Render(user, spec, true, false)
		}
		return c.JSON(ScreenResponse{
			Screen:       s.Name,
			Organization: middleware.OrganizationFrom(c),
			Actions:      actions,
		})
	}
}

// Widget renders dashboard card w.
// GET /api/v1/dashboard/widgets/:widget
func (h *ScreenHandler) Widget(w Widget) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"widget": w.Name, "visible": true})
	}
}

// WidgetPlaceholder is the fallback of a hidden card.
func (h *ScreenHandler) WidgetPlaceholder(w Widget) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"widget": w.Name, "visible": false})
	}
}
