package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/services/review"
)

type ReviewHandler struct {
	Reviews *review.Service
}

type createReviewReq struct {
	ServiceID string `json:"serviceId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// CreateReview files the authenticated client's rating of a service.
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req createReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid serviceId",
		})
	}

	r, err := h.Reviews.Create(uid, getRole(c), serviceID, req.Rating, req.Comment)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": r})
}

// ListReviews is public; ?serviceId= scopes it to one catalog entry.
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	serviceID := uuid.Nil
	if raw := c.Query("serviceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid serviceId",
			})
		}
		serviceID = id
	}

	out, err := h.Reviews.List(serviceID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}
