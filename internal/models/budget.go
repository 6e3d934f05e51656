package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BudgetStatus string

const (
	BudgetPending  BudgetStatus = "PENDING"
	BudgetQuoted   BudgetStatus = "QUOTED"
	BudgetAccepted BudgetStatus = "ACCEPTED"
	BudgetRejected BudgetStatus = "REJECTED"
	BudgetExpired  BudgetStatus = "EXPIRED"
)

// SentinelPrice marks a budget whose price the professional has not set yet.
// It is distinct from a legitimate zero-cost quote only by convention: the
// request flow always writes it, the pricing flow always overwrites it.
const SentinelPrice = "0"

// Budget is the price negotiation artifact, 1:1 with a chat (unique index on
// chat_id). Requesting again for the same chat updates this row in place.
type Budget struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"chat_id"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`

	Price       string       `gorm:"type:decimal(10,2);default:'0'" json:"price"`
	Description string       `gorm:"type:text" json:"description"`
	Status      BudgetStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	ExpiresAt   time.Time    `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Chat    *Chat    `gorm:"foreignKey:ChatID" json:"chat,omitempty"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (b *Budget) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
