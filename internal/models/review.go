package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a client's rating of a professional's service. One review per
// client per service; writing again is not supported.
type Review struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_once,priority:1" json:"service_id"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_once,priority:2" json:"client_id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;index" json:"professional_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Client  *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (r *Review) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
