package middleware

import (
	"crm-console/internal/authz"
	"crm-console/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Gate renders children when the current user passes spec and fallback
// otherwise. A nil fallback renders nothing. It never redirects and is
// evaluated against the latest session snapshot on every request.
func Gate(spec authz.QuerySpec, children, fallback fiber.Handler) fiber.Handler {
	if fallback == nil {
		fallback = func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	}
	return func(c *fiber.Ctx) error {
		user := UserFrom(c)
		if authz.Decide(user, spec) {
			metrics.GuardDecisions.WithLabelValues("gate", "children").Inc()
			return children(c)
		}
		metrics.GuardDecisions.WithLabelValues("gate", "fallback").Inc()
		return fallback(c)
	}
}
