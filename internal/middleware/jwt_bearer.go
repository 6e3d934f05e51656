package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iuork/iuork-backend/internal/utils"
)

// JWTFromHeader verifies the Authorization: Bearer token and stashes the
// parsed token in locals. The core trusts this identity unconditionally.
func JWTFromHeader(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return fiber.ErrUnauthorized
		}

		token, _, err := utils.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("user", token)
		return c.Next()
	}
}
