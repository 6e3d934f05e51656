package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient Role = "CLIENT"
	RolePro    Role = "PRO"
)

// User is either a client or a professional. The role is set at signup and
// never changes; there is no role-change endpoint.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
	AvatarURL string    `gorm:"type:text" json:"avatar_url,omitempty"`

	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"type:varchar(10);not null;index" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProfessionalProfile *ProfessionalProfile `gorm:"foreignKey:UserID;references:ID" json:"professional_profile,omitempty"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ProfessionalProfile exists 1:1 with a PRO user. Services hang off the
// profile, not the user, mirroring the catalog side of the product.
type ProfessionalProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Bio         string         `gorm:"type:text" json:"bio"`
	Specialties datatypes.JSON `json:"specialties"` // ["manicure", "pedicure", ...]

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Services []Service `gorm:"foreignKey:ProfessionalID" json:"services,omitempty"`
}

func (p *ProfessionalProfile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
