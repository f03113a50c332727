package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocalKey is the Fiber locals key holding the authenticated user id.
const UserIDLocalKey = "user_id"

// TokenVerifier validates a bearer token and returns the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" token.
func RequireAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		id, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(UserIDLocalKey, id)
		return c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(UserIDLocalKey).(int64)
	return id, ok
}
