package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/realtime"
)

// Service drives the booking offer lifecycle: REQUESTED -> ACCEPTED or
// CANCELLED, nothing out of a terminal state. Transitions are conditional
// updates checked via RowsAffected.
type Service struct {
	DB       *gorm.DB
	Notifier realtime.Publisher
}

func NewService(gdb *gorm.DB, notifier realtime.Publisher) *Service {
	return &Service{DB: gdb, Notifier: notifier}
}

type CreateInput struct {
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	ScheduledAt    *time.Time
	Address        string
	Latitude       *float64
	Longitude      *float64
}

// Create files a booking offer on behalf of a client. The client's contact
// info is snapshotted onto the row so the professional keeps it as it was at
// request time. The professional is notified with a full offer snapshot.
func (s *Service) Create(clientID uuid.UUID, role models.Role, in CreateInput) (*models.Booking, error) {
	if role != models.RoleClient {
		return nil, fmt.Errorf("%w: only clients can request bookings", apperr.ErrForbidden)
	}
	if in.ProfessionalID == uuid.Nil || in.ServiceID == uuid.Nil || in.ScheduledAt == nil {
		return nil, fmt.Errorf("%w: professionalId, serviceId and scheduledAt are required", apperr.ErrValidation)
	}

	var svc models.Service
	if err := s.DB.First(&svc, "id = ?", in.ServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service", apperr.ErrNotFound)
		}
		return nil, err
	}

	var client models.User
	if err := s.DB.First(&client, "id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: client", apperr.ErrNotFound)
		}
		return nil, err
	}

	b := models.Booking{
		ClientID:       clientID,
		ProfessionalID: in.ProfessionalID,
		ServiceID:      in.ServiceID,
		Status:         models.BookingRequested,
		ScheduledAt:    in.ScheduledAt,
		Address:        in.Address,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		ClientName:     client.Name,
		ClientPhone:    client.Phone,
		ClientEmail:    client.Email,
		ClientAvatar:   client.AvatarURL,
	}
	if err := s.DB.Create(&b).Error; err != nil {
		return nil, err
	}

	s.Notifier.Publish(realtime.ProfessionalChannel(in.ProfessionalID), realtime.EventNewBookingOffer, map[string]interface{}{
		"id": b.ID,
		"client": map[string]interface{}{
			"id":        client.ID,
			"name":      client.Name,
			"phone":     client.Phone,
			"email":     client.Email,
			"avatarUrl": client.AvatarURL,
		},
		"service": map[string]interface{}{
			"id":          svc.ID,
			"title":       svc.Title,
			"description": svc.Description,
			"price":       svc.Price,
			"pricingType": svc.PricingType,
		},
		"scheduledAt": b.ScheduledAt,
		"address":     b.Address,
		"latitude":    b.Latitude,
		"longitude":   b.Longitude,
		"createdAt":   b.CreatedAt,
	})

	return &b, nil
}

// ListMine returns the user's bookings, newest first, with the service and
// counterpart identity preloaded. For clients the professional's display
// identity is resolved through the service's owning profile.
func (s *Service) ListMine(userID uuid.UUID, role models.Role) ([]models.Booking, error) {
	column := "client_id"
	if role == models.RolePro {
		column = "professional_id"
	}

	q := s.DB.
		Preload("Service").
		Where(column+" = ?", userID).
		Order("created_at DESC")
	if role == models.RoleClient {
		q = q.Preload("Service.Professional.User").Preload("Professional")
	}

	var out []models.Booking
	err := q.Find(&out).Error
	return out, err
}

// ListPending returns the professional's not-yet-answered offers.
func (s *Service) ListPending(professionalID uuid.UUID, role models.Role) ([]models.Booking, error) {
	if role != models.RolePro {
		return nil, fmt.Errorf("%w: only professionals can list pending bookings", apperr.ErrForbidden)
	}
	var out []models.Booking
	err := s.DB.
		Preload("Service").
		Where("professional_id = ? AND status = ?", professionalID, models.BookingRequested).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Accept confirms a requested booking. Only the addressed professional may
// answer, and only once: a second answer loses the conditional update and
// reports a conflict.
func (s *Service) Accept(bookingID, professionalID uuid.UUID) (*models.Booking, error) {
	return s.answer(bookingID, professionalID, models.BookingAccepted)
}

// Reject declines a requested booking, moving it to CANCELLED.
func (s *Service) Reject(bookingID, professionalID uuid.UUID) (*models.Booking, error) {
	return s.answer(bookingID, professionalID, models.BookingCancelled)
}

func (s *Service) answer(bookingID, professionalID uuid.UUID, to models.BookingStatus) (*models.Booking, error) {
	b, err := s.ByID(bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProfessionalID != professionalID {
		return nil, fmt.Errorf("%w: booking belongs to another professional", apperr.ErrForbidden)
	}
	if b.Status != models.BookingRequested {
		return nil, fmt.Errorf("%w: booking already answered", apperr.ErrConflict)
	}

	tx := s.DB.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, models.BookingRequested).
		Update("status", to)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: booking already answered", apperr.ErrConflict)
	}

	b.Status = to

	event := realtime.EventBookingRejected
	payload := map[string]interface{}{
		"id":     b.ID,
		"status": b.Status,
	}
	if to == models.BookingAccepted {
		event = realtime.EventBookingAccepted
		payload["scheduledAt"] = b.ScheduledAt
	}
	s.Notifier.Publish(realtime.ClientChannel(b.ClientID), event, payload)

	return b, nil
}

func (s *Service) ByID(bookingID uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := s.DB.
		Preload("Service").
		First(&b, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
