package middleware

import (
	"crm-console/internal/authz"
	"crm-console/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// ForbiddenPath is where the route guard sends users that fail its check.
const ForbiddenPath = "/403"

// Guard wraps a page handler. While no user is known it renders nothing,
// including after loading has settled without a user. Super users always get
// the view; everyone else gets it when the composite decision holds and is
// redirected to ForbiddenPath otherwise. The decision is taken once per
// request.
func Guard(spec authz.QuerySpec, view fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			metrics.GuardDecisions.WithLabelValues("route", "no_user").Inc()
			return c.SendStatus(fiber.StatusNoContent)
		}

		snap := sess.Snapshot()
		if snap.User == nil {
			outcome := "no_user"
			if snap.Loading || !snap.Settled {
				outcome = "pending"
			}
			metrics.GuardDecisions.WithLabelValues("route", outcome).Inc()
			return c.SendStatus(fiber.StatusNoContent)
		}

		if authz.IsSuperUser(snap.User) {
			metrics.GuardDecisions.WithLabelValues("route", "super").Inc()
			return view(c)
		}
		if authz.Decide(snap.User, spec) {
			metrics.GuardDecisions.WithLabelValues("route", "allowed").Inc()
			return view(c)
		}

		metrics.GuardDecisions.WithLabelValues("route", "redirected").Inc()
		return c.Redirect(ForbiddenPath, fiber.StatusFound)
	}
}

// RequirePermission is Guard as a middleware in front of the next handler.
func RequirePermission(spec authz.QuerySpec) fiber.Handler {
	return Guard(spec, func(c *fiber.Ctx) error { return c.Next() })
}
