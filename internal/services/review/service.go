package review

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/db"
	"github.com/iuork/iuork-backend/internal/models"
)

// Service owns the review surface of the catalog. Reviews are write-once and
// public to read; no moderation flow exists.
type Service struct {
	DB *gorm.DB
}

func NewService(gdb *gorm.DB) *Service {
	return &Service{DB: gdb}
}

// Create files the client's rating of a service. The reviewed professional is
// resolved through the service's owning profile, never taken from the caller.
func (s *Service) Create(clientID uuid.UUID, role models.Role, serviceID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if role != models.RoleClient {
		return nil, fmt.Errorf("%w: only clients can review services", apperr.ErrForbidden)
	}
	if serviceID == uuid.Nil {
		return nil, fmt.Errorf("%w: serviceId is required", apperr.ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperr.ErrValidation)
	}

	var svc models.Service
	err := s.DB.Preload("Professional").First(&svc, "id = ?", serviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: service", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if svc.Professional == nil {
		return nil, fmt.Errorf("%w: service has no professional", apperr.ErrNotFound)
	}

	r := models.Review{
		ServiceID:      serviceID,
		ClientID:       clientID,
		ProfessionalID: svc.Professional.UserID,
		Rating:         rating,
		Comment:        comment,
	}
	if err := s.DB.Create(&r).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: service already reviewed", apperr.ErrConflict)
		}
		return nil, err
	}

	s.DB.Preload("Client").First(&r, "id = ?", r.ID)
	return &r, nil
}

// List returns reviews newest-first, optionally scoped to one service.
func (s *Service) List(serviceID uuid.UUID) ([]models.Review, error) {
	q := s.DB.Preload("Client").Order("created_at DESC")
	if serviceID != uuid.Nil {
		q = q.Where("service_id = ?", serviceID)
	}
	var out []models.Review
	err := q.Find(&out).Error
	return out, err
}
