package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/models"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Locals("userId")
	s, ok := raw.(string)
	if !ok || s == "" {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}

func getRole(c *fiber.Ctx) models.Role {
	if s, ok := c.Locals("role").(string); ok {
		return models.Role(s)
	}
	return ""
}

// serviceError maps taxonomy errors onto HTTP statuses. Anything outside the
// taxonomy is logged and reported as a plain 500 without leaking internals.
func serviceError(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
