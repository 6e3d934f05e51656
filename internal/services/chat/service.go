package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/db"
	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/realtime"
)

const previewLen = 80

// Service owns chat threads and their messages. Every mutation persists
// first and notifies after; a failed publish never rolls anything back.
type Service struct {
	DB       *gorm.DB
	Notifier realtime.Publisher
}

func NewService(db *gorm.DB, notifier realtime.Publisher) *Service {
	return &Service{DB: db, Notifier: notifier}
}

// GetOrCreate resolves the chat for a (client, professional, service) triple,
// creating it on first use. serviceID may be uuid.Nil for service-less chats.
// Two concurrent first calls race on the unique triple index; the loser
// re-fetches the winner's row instead of surfacing the violation.
func (s *Service) GetOrCreate(clientID, professionalID, serviceID uuid.UUID) (*models.Chat, bool, error) {
	if clientID == uuid.Nil || professionalID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: clientId and professionalId are required", apperr.ErrValidation)
	}

	chat, err := s.find(clientID, professionalID, serviceID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	fresh := models.Chat{
		ClientID:       clientID,
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
	}
	if err := s.DB.Create(&fresh).Error; err != nil {
		if db.IsDuplicate(err) {
			existing, ferr := s.find(clientID, professionalID, serviceID)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return &fresh, true, nil
}

// Check looks the chat up without creating it.
func (s *Service) Check(clientID, professionalID, serviceID uuid.UUID) (*models.Chat, error) {
	if clientID == uuid.Nil || professionalID == uuid.Nil {
		return nil, fmt.Errorf("%w: clientId and professionalId are required", apperr.ErrValidation)
	}
	return s.find(clientID, professionalID, serviceID)
}

func (s *Service) find(clientID, professionalID, serviceID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.
		Preload("Client").
		Preload("Professional").
		Preload("Service").
		Preload("Budget").
		Where("client_id = ? AND professional_id = ? AND service_id = ?", clientID, professionalID, serviceID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: chat", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *Service) ByID(chatID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.
		Preload("Client").
		Preload("Professional").
		Preload("Service").
		Preload("Budget").
		First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: chat", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

type AppendInput struct {
	Content       string
	MediaURL      string
	MessageType   models.MessageType
	AudioDuration *int
}

// Append persists a message, bumps the chat's lastMessageAt and fans out:
// the full record to the chat room, a truncated preview to both personal
// channels, and a new-chat event to the professional if this was the thread's
// first message.
func (s *Service) Append(chatID, senderID uuid.UUID, in AppendInput) (*models.Message, error) {
	if in.Content == "" && in.MediaURL == "" {
		return nil, fmt.Errorf("%w: content or mediaUrl is required", apperr.ErrValidation)
	}
	if senderID == uuid.Nil {
		return nil, fmt.Errorf("%w: senderId is required", apperr.ErrValidation)
	}

	chat, err := s.ByID(chatID)
	if err != nil {
		return nil, err
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = models.MessageText
	}

	msg := models.Message{
		ChatID:        chatID,
		SenderID:      senderID,
		Content:       in.Content,
		MediaURL:      in.MediaURL,
		MessageType:   msgType,
		AudioDuration: in.AudioDuration,
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("last_message_at", now).Error; err != nil {
		return nil, err
	}

	s.DB.Preload("Sender").First(&msg, "id = ?", msg.ID)

	s.Notifier.Publish(realtime.ChatChannel(chatID), realtime.EventNewMessage, &msg)

	listUpdate := map[string]interface{}{
		"chatId":        chatID,
		"lastMessageAt": now,
		"lastMessage": map[string]interface{}{
			"content":   preview(in.Content),
			"senderId":  senderID,
			"createdAt": msg.CreatedAt,
		},
	}
	s.Notifier.Publish(realtime.ProfessionalChannel(chat.ProfessionalID), realtime.EventChatListUpdate, listUpdate)
	s.Notifier.Publish(realtime.ClientChannel(chat.ClientID), realtime.EventChatListUpdate, listUpdate)

	var count int64
	s.DB.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&count)
	if count == 1 {
		s.Notifier.Publish(realtime.ProfessionalChannel(chat.ProfessionalID), realtime.EventNewChat, chat)
	}

	return &msg, nil
}

// preview truncates message content for chat-list notifications; the full
// body only travels on the chat room itself.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "…"
}

// MarkRead flips every message in the chat not sent by the reader to read.
// Repeating the call is a no-op besides re-emitting the same notification.
func (s *Service) MarkRead(chatID, readerID uuid.UUID) error {
	if readerID == uuid.Nil {
		return fmt.Errorf("%w: userId is required", apperr.ErrValidation)
	}

	var chat models.Chat
	if err := s.DB.Select("id", "client_id", "professional_id").First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: chat", apperr.ErrNotFound)
		}
		return err
	}

	if err := s.DB.Model(&models.Message{}).
		Where("chat_id = ? AND sender_id != ? AND is_read = ?", chatID, readerID, false).
		Update("is_read", true).Error; err != nil {
		return err
	}

	readEvent := map[string]interface{}{"chatId": chatID, "userId": readerID}
	s.Notifier.Publish(realtime.ProfessionalChannel(chat.ProfessionalID), realtime.EventMessageRead, readEvent)
	s.Notifier.Publish(realtime.ClientChannel(chat.ClientID), realtime.EventMessageRead, readEvent)
	return nil
}

// DeleteMessage hard-deletes a message. No event is emitted; clients pick
// the deletion up on the next refresh.
func (s *Service) DeleteMessage(messageID uuid.UUID) error {
	tx := s.DB.Delete(&models.Message{}, "id = ?", messageID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: message", apperr.ErrNotFound)
	}
	return nil
}

// Messages returns a chat's messages oldest-first.
func (s *Service) Messages(chatID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var msgs []models.Message
	err := s.DB.
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

// ListItem is one row of a user's chat list.
type ListItem struct {
	Chat        models.Chat     `json:"chat"`
	LastMessage *models.Message `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

// ListForUser returns the chats the user participates in, most recently
// active first, with unread counters relative to that user.
func (s *Service) ListForUser(userID uuid.UUID, role models.Role) ([]ListItem, error) {
	column := "client_id"
	if role == models.RolePro {
		column = "professional_id"
	}

	var chats []models.Chat
	if err := s.DB.
		Preload("Client").
		Preload("Professional").
		Preload("Service").
		Preload("Budget").
		Where(column+" = ?", userID).
		Order("last_message_at DESC").
		Find(&chats).Error; err != nil {
		return nil, err
	}

	out := make([]ListItem, 0, len(chats))
	for _, c := range chats {
		item := ListItem{Chat: c}

		var last models.Message
		if err := s.DB.
			Where("chat_id = ?", c.ID).
			Order("created_at DESC").
			First(&last).Error; err == nil {
			item.LastMessage = &last
		}

		s.DB.Model(&models.Message{}).
			Where("chat_id = ? AND sender_id != ? AND is_read = ?", c.ID, userID, false).
			Count(&item.UnreadCount)

		out = append(out, item)
	}
	return out, nil
}
