// Package apperr holds the error taxonomy shared by the chat, budget and
// booking services. Handlers map these to HTTP statuses with Status; anything
// outside the taxonomy is a server error.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrBudgetExpired = errors.New("budget expired")
)

func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrBudgetExpired):
		// time-based rejection, reported as a client error not a conflict
		return fiber.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
