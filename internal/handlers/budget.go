package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/services/budget"
)

type BudgetHandler struct {
	Budgets *budget.Service
}

type requestBudgetReq struct {
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
}

// RequestBudget opens a budget negotiation as the authenticated client.
func (h *BudgetHandler) RequestBudget(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req requestBudgetReq
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

	b, err := h.Budgets.Request(uid, professionalID, serviceID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": b})
}

type setPriceReq struct {
	ChatID      string      `json:"chatId"`
	ServiceID   string      `json:"serviceId"`
	Price       interface{} `json:"price"`
	Description string      `json:"description"`
}

// SetPrice records the professional's quote for a chat's budget. Price
// arrives as a string or number; either way it is stored as a decimal string.
func (h *BudgetHandler) SetPrice(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req setPriceReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chatId",
		})
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid serviceId",
		})
	}

	price := priceString(req.Price)
	if price == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "price is required",
		})
	}

	var chatRow models.Chat
	if err := h.Budgets.DB.Select("id", "professional_id").First(&chatRow, "id = ?", chatID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "chat not found",
		})
	}
	if chatRow.ProfessionalID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "only the chat's professional can set the price",
		})
	}

	b, err := h.Budgets.SetPrice(chatID, serviceID, price, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": b})
}

func priceString(v interface{}) string {
	switch p := v.(type) {
	case string:
		return p
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return ""
	}
}

// ChatBudgets lists a chat's budgets, optionally filtered by ?status=.
func (h *BudgetHandler) ChatBudgets(c *fiber.Ctx) error {
	chatID, ok := parseUUIDParam(c, "chatId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chat id",
		})
	}

	out, err := h.Budgets.ByChat(chatID, models.BudgetStatus(c.Query("status")))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// GetBudget returns a single budget with its chat context.
func (h *BudgetHandler) GetBudget(c *fiber.Ctx) error {
	budgetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid budget id",
		})
	}

	b, err := h.Budgets.ByID(budgetID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": b})
}

// AcceptBudget is the client's yes to a pending or quoted budget.
func (h *BudgetHandler) AcceptBudget(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	return h.answer(c, uid, h.Budgets.Accept)
}

// RejectBudget is the client's no.
func (h *BudgetHandler) RejectBudget(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	return h.answer(c, uid, h.Budgets.Reject)
}

// CancelBudget force-rejects the budget regardless of status so the client
// can start over.
func (h *BudgetHandler) CancelBudget(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	return h.answer(c, uid, h.Budgets.Cancel)
}

func (h *BudgetHandler) answer(c *fiber.Ctx, uid uuid.UUID, op func(uuid.UUID) (*models.Budget, error)) error {
	budgetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid budget id",
		})
	}

	b, err := h.Budgets.ByID(budgetID)
	if err != nil {
		return serviceError(c, err)
	}
	if b.Chat == nil || b.Chat.ClientID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "only the chat's client can answer this budget",
		})
	}

	out, err := op(budgetID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// AcceptedForService resumes a negotiation: the client's most recent accepted
// budget for the service, if any.
func (h *BudgetHandler) AcceptedForService(c *fiber.Ctx) error {
	return h.latest(c, h.Budgets.AcceptedForService)
}

// PendingForService finds the client's still-unpriced, unexpired request.
func (h *BudgetHandler) PendingForService(c *fiber.Ctx) error {
	return h.latest(c, h.Budgets.PendingForService)
}

// QuotedForService finds the client's priced-but-unanswered, unexpired budget.
func (h *BudgetHandler) QuotedForService(c *fiber.Ctx) error {
	return h.latest(c, h.Budgets.QuotedForService)
}

func (h *BudgetHandler) latest(c *fiber.Ctx, op func(serviceID, clientID uuid.UUID) (*models.Budget, error)) error {
	serviceID, ok := parseUUIDParam(c, "serviceId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid service id",
		})
	}
	clientID, ok := parseUUIDParam(c, "clientId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid client id",
		})
	}

	b, err := op(serviceID, clientID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": b})
}
