package middleware

import (
	"strings"
	"time"

	"crm-console/internal/model"
	"crm-console/internal/session"
	"crm-console/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth
const (
	LocalSession      = "session"
	LocalClaims       = "claims"
	LocalOrganization = "organization"
)

// RequireAuth validates the bearer token, attaches the session context and
// waits up to wait for the session's user to be loaded. When the wait runs
// out the request continues with the session still loading; the guards treat
// that as indeterminate.
func RequireAuth(sessions *session.Manager, issuer *jwt.Issuer, wait time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		sess := sessions.Acquire(claims.SessionID, claims.UserID)
		if claims.ExpiresAt != nil {
			sess.ExpireAt(claims.ExpiresAt.Time)
		}
		snap := sessions.AwaitRestore(c.UserContext(), sess, wait)

		if snap.Settled && snap.User == nil {
			_ = sessions.End(c.UserContext(), claims.SessionID)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
		}
		if snap.User != nil {
			if snap.User.TokenVersion != claims.TokenVersion {
				_ = sessions.End(c.UserContext(), claims.SessionID)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired (logged in on another device)"})
			}
			if !snap.User.IsActive {
				_ = sessions.End(c.UserContext(), claims.SessionID)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User account is inactive"})
			}
		}

		c.Locals(LocalSession, sess)
		c.Locals(LocalClaims, claims)
		return c.Next()
	}
}

// bearerToken reads the token from the Authorization header, or from the
// "token" query parameter for websocket upgrades.
func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionFrom returns the session attached by RequireAuth.
func SessionFrom(c *fiber.Ctx) *session.Context {
	sess, _ := c.Locals(LocalSession).(*session.Context)
	return sess
}

// ClaimsFrom returns the token claims attached by RequireAuth.
func ClaimsFrom(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals(LocalClaims).(*jwt.Claims)
	return claims
}

// UserFrom returns the current user snapshot, nil while unknown.
func UserFrom(c *fiber.Ctx) *model.User {
	sess := SessionFrom(c)
	if sess == nil {
		return nil
	}
	return sess.Snapshot().User
}

// OrganizationFrom returns the organization attached by RequireOrganization.
func OrganizationFrom(c *fiber.Ctx) *model.Organization {
	org, _ := c.Locals(LocalOrganization).(*model.Organization)
	return org
}
