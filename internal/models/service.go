package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PricingType string

const (
	PricingFixed  PricingType = "FIXED"
	PricingHourly PricingType = "HOURLY"
	PricingBudget PricingType = "BUDGET" // price negotiated per job via budgets
)

// Service is an advertised offering of a professional. The core reads its
// pricing metadata; editing images/categories is catalog plumbing.
type Service struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;index" json:"professional_id"`

	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	PricingType PricingType `gorm:"type:varchar(10);default:'BUDGET'" json:"pricing_type"`
	Price       *float64    `json:"price,omitempty"`

	Images datatypes.JSON `json:"images"` // list of public URLs

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Professional *ProfessionalProfile `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
}

func (s *Service) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
