package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/services/chat"
)

type ChatHandler struct {
	Chats *chat.Service
}

type openChatReq struct {
	ClientID       string `json:"clientId"`
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
}

// OpenChat resolves or creates the chat for a participant triple. The caller
// fills in whichever side it is not; serviceId is optional.
func (h *ChatHandler) OpenChat(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req openChatReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	clientID := uid
	if req.ClientID != "" {
		if clientID, err = uuid.Parse(req.ClientID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid clientId",
			})
		}
	}

	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid professionalId",
		})
	}

	serviceID := uuid.Nil
	if req.ServiceID != "" {
		if serviceID, err = uuid.Parse(req.ServiceID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid serviceId",
			})
		}
	}

	ch, created, err := h.Chats.GetOrCreate(clientID, professionalID, serviceID)
	if err != nil {
		return serviceError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    ch,
		"created": created,
	})
}

// CheckChat reports whether a chat already exists for the triple without
// creating one.
func (h *ChatHandler) CheckChat(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	clientID := uid
	if raw := c.Query("clientId"); raw != "" {
		if clientID, err = uuid.Parse(raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid clientId",
			})
		}
	}

	professionalID, err := uuid.Parse(c.Query("professionalId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid professionalId",
		})
	}

	serviceID := uuid.Nil
	if raw := c.Query("serviceId"); raw != "" {
		if serviceID, err = uuid.Parse(raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "invalid serviceId",
			})
		}
	}

	ch, err := h.Chats.Check(clientID, professionalID, serviceID)
	if errors.Is(err, apperr.ErrNotFound) {
		return c.JSON(fiber.Map{"success": true, "exists": false})
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "exists": true, "data": ch})
}

// ListChats returns the caller's chat list with unread counters.
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	items, err := h.Chats.ListForUser(uid, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// GetChat returns one chat the caller participates in.
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	chatID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chat id",
		})
	}

	ch, err := h.Chats.ByID(chatID)
	if err != nil {
		return serviceError(c, err)
	}
	if ch.ClientID != uid && ch.ProfessionalID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "not a participant of this chat",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": ch})
}

// ListMessages pages through a chat's messages, oldest first.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	chatID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chat id",
		})
	}

	ch, err := h.Chats.ByID(chatID)
	if err != nil {
		return serviceError(c, err)
	}
	if ch.ClientID != uid && ch.ProfessionalID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "not a participant of this chat",
		})
	}

	msgs, err := h.Chats.Messages(chatID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": msgs})
}

type sendMessageReq struct {
	Content       string `json:"content"`
	MediaURL      string `json:"mediaUrl"`
	MessageType   string `json:"messageType"`
	AudioDuration *int   `json:"audioDuration"`
}

// SendMessage appends a message to a chat as the authenticated user.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	chatID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chat id",
		})
	}

	ch, err := h.Chats.ByID(chatID)
	if err != nil {
		return serviceError(c, err)
	}
	if ch.ClientID != uid && ch.ProfessionalID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "not a participant of this chat",
		})
	}

	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	msg, err := h.Chats.Append(chatID, uid, chat.AppendInput{
		Content:       req.Content,
		MediaURL:      req.MediaURL,
		MessageType:   models.MessageType(req.MessageType),
		AudioDuration: req.AudioDuration,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": msg})
}

// MarkRead marks everything the other side sent in this chat as read.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	chatID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid chat id",
		})
	}

	if err := h.Chats.MarkRead(chatID, uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "messages marked as read"})
}

// DeleteMessage removes one of the caller's own messages.
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	messageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid message id",
		})
	}

	var msg models.Message
	if err := h.Chats.DB.First(&msg, "id = ?", messageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "message not found",
		})
	}
	if msg.SenderID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "can only delete your own messages",
		})
	}

	if err := h.Chats.DeleteMessage(messageID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "message deleted"})
}
