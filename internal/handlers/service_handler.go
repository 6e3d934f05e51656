package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/models"
)

type ServiceHandler struct {
	DB *gorm.DB
}

// ListServices is the public catalog. Supports ?q= title search and
// ?pricingType= filtering.
func (h *ServiceHandler) ListServices(c *fiber.Ctx) error {
	q := h.DB.
		Preload("Professional.User").
		Order("created_at DESC")

	if term := strings.TrimSpace(c.Query("q")); term != "" {
		q = q.Where("title LIKE ?", "%"+term+"%")
	}
	if pt := strings.ToUpper(c.Query("pricingType")); pt != "" {
		q = q.Where("pricing_type = ?", pt)
	}

	var services []models.Service
	if err := q.Find(&services).Error; err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": services})
}

// GetService returns one catalog entry.
func (h *ServiceHandler) GetService(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid service id",
		})
	}

	var svc models.Service
	if err := h.DB.Preload("Professional.User").First(&svc, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "service not found",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": svc})
}

// MyServices lists the authenticated professional's own services.
func (h *ServiceHandler) MyServices(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var profile models.ProfessionalProfile
	if err := h.DB.First(&profile, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "professional profile not found",
		})
	}

	var services []models.Service
	if err := h.DB.
		Where("professional_id = ?", profile.ID).
		Order("created_at DESC").
		Find(&services).Error; err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": services})
}

type createServiceReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PricingType string   `json:"pricingType"`
	Price       *float64 `json:"price"`
	Images      []string `json:"images"`
}

// CreateService publishes a new catalog entry under the caller's profile.
func (h *ServiceHandler) CreateService(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req createServiceReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "title is required",
		})
	}

	pricingType := models.PricingType(strings.ToUpper(req.PricingType))
	switch pricingType {
	case models.PricingFixed, models.PricingHourly:
		if req.Price == nil || *req.Price <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "price is required for fixed and hourly services",
			})
		}
	case models.PricingBudget:
		// negotiated per client, no list price
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "pricingType must be FIXED, HOURLY or BUDGET",
		})
	}

	var profile models.ProfessionalProfile
	if err := h.DB.First(&profile, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "professional profile not found",
		})
	}

	var images datatypes.JSON
	if len(req.Images) > 0 {
		raw, err := json.Marshal(req.Images)
		if err != nil {
			return serviceError(c, err)
		}
		images = datatypes.JSON(raw)
	}

	svc := models.Service{
		ProfessionalID: profile.ID,
		Title:          title,
		Description:    req.Description,
		PricingType:    pricingType,
		Price:          req.Price,
		Images:         images,
	}
	if err := h.DB.Create(&svc).Error; err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": svc})
}
