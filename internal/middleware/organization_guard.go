package middleware

import (
	"fmt"

	"crm-console/internal/metrics"
	"crm-console/internal/organization"

	"github.com/gofiber/fiber/v2"
)

// Skeleton is the body sent while the session or organization is loading.
var Skeleton = fiber.Map{"status": "loading"}

// RequireOrganization blocks tenant-scoped handlers until the session has a
// current organization. While auth or the organization store is loading it
// answers 202 with Skeleton. Once auth has settled it triggers the derivation
// from the user once per finished user load. Without a selection
// it answers with a blocking interstitial and never redirects.
func RequireOrganization() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		snap := sess.Snapshot()
		if snap.Loading || !snap.Settled {
			metrics.GuardDecisions.WithLabelValues("organization", "loading").Inc()
			return c.Status(fiber.StatusAccepted).JSON(Skeleton)
		}

		store := sess.Organizations()
		orgs := store.Snapshot()
		if orgs.Status == organization.NoOrganization {
			var userID uint
			if snap.User != nil {
				userID = snap.User.ID
			}
			if sess.ShouldDerive(fmt.Sprintf("%d:%d", userID, snap.Loads)) {
				// Failures are recorded on the store and shown in the interstitial.
				_ = store.CurrentFromUser(c.UserContext(), snap.User)
				orgs = store.Snapshot()
			}
		}

		switch orgs.Status {
		case organization.Loading:
			metrics.GuardDecisions.WithLabelValues("organization", "loading").Inc()
			return c.Status(fiber.StatusAccepted).JSON(Skeleton)
		case organization.Selected:
			metrics.GuardDecisions.WithLabelValues("organization", "selected").Inc()
			c.Locals(LocalOrganization, orgs.Current)
			return c.Next()
		default:
			metrics.GuardDecisions.WithLabelValues("organization", "interstitial").Inc()
			body := fiber.Map{
				"error": "Select an organization to continue",
				"code":  "organization_required",
			}
			if orgs.Err != "" {
				body["detail"] = orgs.Err
			}
			return c.Status(fiber.StatusPreconditionRequired).JSON(body)
		}
	}
}
