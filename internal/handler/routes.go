package handler

import (
	"time"

	"crm-console/internal/authz"
	"crm-console/internal/middleware"
	"crm-console/internal/model"
	"crm-console/internal/repository"
	"crm-console/internal/service"
	"crm-console/internal/session"
	"crm-console/internal/ws"
	"crm-console/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Sessions    *session.Manager
	Issuer      *jwt.Issuer
	RestoreWait time.Duration

	AuthService service.AuthService
	UserService service.UserService
	Roles       repository.RoleRepository
	Permissions repository.PermissionRepository

	Menu   []authz.MenuItem
	Hub    *ws.Hub
	Logger *zap.Logger
}

// Register mounts the console API on app.
func Register(app *fiber.App, d Deps) {
	authHandler := NewAuthHandler(d.AuthService)
	userHandler := NewUserHandler(d.UserService)
	roleHandler := NewRoleHandler(d.Roles, d.Permissions)
	authzHandler := NewAuthzHandler(d.Menu)
	orgHandler := NewOrganizationHandler()
	screenHandler := NewScreenHandler()

	requireAuth := middleware.RequireAuth(d.Sessions, d.Issuer, d.RestoreWait)
	superOnly := middleware.RequirePermission(authz.Role(model.SuperRoleID))

	app.Get(middleware.ForbiddenPath, Forbidden)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Post("/refresh", requireAuth, authHandler.Refresh)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/me", authzHandler.Me)
	protected.Get("/me/permissions", authzHandler.MyPermissions)
	protected.Post("/authz/check", authzHandler.Check)
	protected.Get("/menu", authzHandler.Menu)

	protected.Get("/organizations", superOnly, orgHandler.List)
	protected.Get("/organizations/current", orgHandler.Current)
	protected.Put("/organizations/current", superOnly, orgHandler.Select)

	for _, s := range Screens {
		protected.Get("/screens/"+s.Name, middleware.RequirePermission(s.Spec()), middleware.RequireOrganization(), screenHandler.Show(s))
	}
	for _, w := range Widgets {
		protected.Get("/dashboard/widgets/"+w.Name, middleware.Gate(w.Spec, screenHandler.Widget(w), screenHandler.WidgetPlaceholder(w)))
	}

	protected.Get("/roles", middleware.RequirePermission(authz.Perm("role_Access")), roleHandler.GetRoles)
	protected.Get("/permissions", middleware.RequirePermission(authz.Perm("role_Access")), roleHandler.GetPermissions)

	protected.Get("/users", middleware.RequirePermission(authz.Perm("user_Access")), userHandler.GetUsers)
	protected.Get("/users/:id", middleware.RequirePermission(authz.Perm("user_Access")), userHandler.GetUser)
	protected.Put("/users/:id/roles", middleware.RequirePermission(authz.Perm("user_Edit")), userHandler.AssignRoles)

	// WebSocket Route
	if d.Hub != nil {
		wsHandler := NewWSHandler(d.Hub, d.Menu, d.Logger)
		app.Use("/ws", wsHandler.Upgrade)
		app.Get("/ws", requireAuth, wsHandler.Serve())
	}
}
