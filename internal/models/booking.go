package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingRequested BookingStatus = "REQUESTED"
	BookingAccepted  BookingStatus = "ACCEPTED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking is a scheduled-service offer from a client to a professional. It is
// independent of chats/budgets. Client contact fields are snapshotted at
// creation time so the professional sees them even if the profile changes.
type Booking struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;index" json:"professional_id"`
	ServiceID      uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`

	Status      BookingStatus `gorm:"type:varchar(10);not null;default:'REQUESTED';index" json:"status"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`

	Address   string   `gorm:"type:text" json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	ClientName   string `json:"client_name"`
	ClientPhone  string `json:"client_phone,omitempty"`
	ClientEmail  string `json:"client_email,omitempty"`
	ClientAvatar string `gorm:"type:text" json:"client_avatar,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client       *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Professional *User    `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Service      *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (b *Booking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
