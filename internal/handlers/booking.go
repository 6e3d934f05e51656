package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/services/booking"
)

type BookingHandler struct {
	Bookings *booking.Service
}

type createBookingReq struct {
	ProfessionalID string   `json:"professionalId"`
	ServiceID      string   `json:"serviceId"`
	ScheduledAt    string   `json:"scheduledAt"` // RFC 3339
	Address        string   `json:"address"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

// CreateBooking files a booking offer as the authenticated client.
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req createBookingReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid professionalId",
		})
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid serviceId",
		})
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "scheduledAt must be RFC 3339",
			})
		}
		scheduledAt = &t
	}

	b, err := h.Bookings.Create(uid, getRole(c), booking.CreateInput{
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
		ScheduledAt:    scheduledAt,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": b})
}

// MyBookings lists the caller's bookings, newest first.
func (h *BookingHandler) MyBookings(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	out, err := h.Bookings.ListMine(uid, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// PendingBookings lists the professional's not-yet-answered offers.
func (h *BookingHandler) PendingBookings(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	out, err := h.Bookings.ListPending(uid, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// AcceptBooking confirms a requested booking as the addressed professional.
func (h *BookingHandler) AcceptBooking(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid booking id",
		})
	}

	b, err := h.Bookings.Accept(bookingID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": b})
}

// RejectBooking declines a requested booking.
func (h *BookingHandler) RejectBooking(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid booking id",
		})
	}

	b, err := h.Bookings.Reject(bookingID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": b})
}
