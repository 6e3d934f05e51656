package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a conversation scoped to exactly one (client, professional,
// service) triple. ServiceID uses uuid.Nil as the canonical "no service"
// value instead of NULL so the composite unique index really enforces one
// chat per triple (postgres treats NULLs as pairwise distinct).
type Chat struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_triple,priority:1" json:"client_id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_triple,priority:2" json:"professional_id"`
	ServiceID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_triple,priority:3" json:"service_id"`

	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client       *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Professional *User     `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Service      *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Messages     []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
	Budget       *Budget   `gorm:"foreignKey:ChatID" json:"budget,omitempty"`
}

func (ch *Chat) BeforeCreate(_ *gorm.DB) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if ch.LastMessageAt.IsZero() {
		ch.LastMessageAt = time.Now()
	}
	return nil
}

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageAudio MessageType = "AUDIO"
)

// Message is append-only; only the read flag ever changes after creation.
type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID   uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_id"`
	SenderID uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`

	Content       string      `gorm:"type:text" json:"content"`
	MediaURL      string      `gorm:"type:text" json:"media_url,omitempty"`
	MessageType   MessageType `gorm:"type:varchar(10);default:'TEXT'" json:"message_type"`
	AudioDuration *int        `json:"audio_duration,omitempty"` // seconds, audio messages only
	IsRead        bool        `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
