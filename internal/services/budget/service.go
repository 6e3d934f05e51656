package budget

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

// Budgets live for 7 days from request or (re)creation.
const ttl = 7 * 24 * time.Hour

const requestDescription = "Budget request"

// Service drives the budget lifecycle. Status transitions are conditional
// updates ("status IN allowed-from") checked via RowsAffected, so concurrent
// conflicting actions lose cleanly instead of overwriting each other.
type Service struct {
	DB       *gorm.DB
	Notifier realtime.Publisher

	// QuoteMode parks priced budgets in QUOTED until the client accepts.
	// Off by default: the legacy flow treats a priced budget as accepted.
	QuoteMode bool
}

func NewService(gdb *gorm.DB, notifier realtime.Publisher) *Service {
	return &Service{DB: gdb, Notifier: notifier}
}

// Request opens (or re-opens) a budget negotiation between a client and a
// professional for a service. Idempotent: an existing PENDING request for
// the same triple is returned unchanged. The chat for the triple is reused
// when present; its budget row is updated in place, never duplicated.
func (s *Service) Request(clientID, professionalID, serviceID uuid.UUID) (*models.Budget, error) {
	if clientID == uuid.Nil || professionalID == uuid.Nil || serviceID == uuid.Nil {
		return nil, fmt.Errorf("%w: clientId, professionalId and serviceId are required", apperr.ErrValidation)
	}

	var svc models.Service
	if err := s.DB.First(&svc, "id = ?", serviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service", apperr.ErrNotFound)
		}
		return nil, err
	}

	// An untouched pending request already exists: hand it back.
	var pending models.Budget
	err := s.DB.
		Joins("JOIN chats ON chats.id = budgets.chat_id").
		Where("budgets.service_id = ? AND budgets.status = ? AND chats.client_id = ? AND chats.professional_id = ?",
			serviceID, models.BudgetPending, clientID, professionalID).
		Order("budgets.created_at DESC").
		First(&pending).Error
	if err == nil {
		return s.ByID(pending.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	expiresAt := time.Now().Add(ttl)

	var chat models.Chat
	err = s.DB.
		Preload("Budget").
		Where("client_id = ? AND professional_id = ? AND service_id = ?", clientID, professionalID, serviceID).
		First(&chat).Error
	switch {
	case err == nil:
		b, rerr := s.reopenInChat(&chat, serviceID, expiresAt)
		if rerr != nil {
			return nil, rerr
		}
		s.notifyListUpdate(chat.ProfessionalID, chat.ID, b)
		return s.ByID(b.ID)

	case errors.Is(err, gorm.ErrRecordNotFound):
		b, cerr := s.createChatAndBudget(clientID, professionalID, serviceID, expiresAt)
		if cerr != nil {
			return nil, cerr
		}
		return s.ByID(b.ID)

	default:
		return nil, err
	}
}

// reopenInChat resets the chat's existing budget to a fresh PENDING request,
// or creates the budget if the chat never had one. A creation race on the
// unique chat_id index falls back to the in-place update.
func (s *Service) reopenInChat(chat *models.Chat, serviceID uuid.UUID, expiresAt time.Time) (*models.Budget, error) {
	reset := map[string]interface{}{
		"status":      models.BudgetPending,
		"price":       models.SentinelPrice,
		"description": requestDescription,
		"service_id":  serviceID,
		"expires_at":  expiresAt,
	}

	if chat.Budget == nil {
		b := models.Budget{
			ChatID:      chat.ID,
			ServiceID:   serviceID,
			Price:       models.SentinelPrice,
			Description: requestDescription,
			Status:      models.BudgetPending,
			ExpiresAt:   expiresAt,
		}
		err := s.DB.Create(&b).Error
		if err == nil {
			s.touchChat(chat.ID)
			return &b, nil
		}
		if !db.IsDuplicate(err) {
			return nil, err
		}
		// lost the race; fall through to the update path
	}

	var b models.Budget
	if err := s.DB.Where("chat_id = ?", chat.ID).First(&b).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Budget{}).Where("id = ?", b.ID).Updates(reset).Error; err != nil {
		return nil, err
	}
	s.touchChat(chat.ID)
	return &b, nil
}

func (s *Service) createChatAndBudget(clientID, professionalID, serviceID uuid.UUID, expiresAt time.Time) (*models.Budget, error) {
	chat := models.Chat{
		ClientID:       clientID,
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
	}
	if err := s.DB.Create(&chat).Error; err != nil {
		if db.IsDuplicate(err) {
			// concurrent request created the chat first; reuse it
			var existing models.Chat
			if ferr := s.DB.Preload("Budget").
				Where("client_id = ? AND professional_id = ? AND service_id = ?", clientID, professionalID, serviceID).
				First(&existing).Error; ferr != nil {
				return nil, ferr
			}
			b, rerr := s.reopenInChat(&existing, serviceID, expiresAt)
			if rerr != nil {
				return nil, rerr
			}
			s.notifyListUpdate(existing.ProfessionalID, existing.ID, b)
			return b, nil
		}
		return nil, err
	}

	b := models.Budget{
		ChatID:      chat.ID,
		ServiceID:   serviceID,
		Price:       models.SentinelPrice,
		Description: requestDescription,
		Status:      models.BudgetPending,
		ExpiresAt:   expiresAt,
	}
	if err := s.DB.Create(&b).Error; err != nil {
		if !db.IsDuplicate(err) {
			return nil, err
		}
		// a concurrent request filed the chat's budget first; reset it in place
		reopened, rerr := s.reopenInChat(&chat, serviceID, expiresAt)
		if rerr != nil {
			return nil, rerr
		}
		b = *reopened
	}

	// New conversation: the professional gets the full snapshot so the chat
	// surfaces without a prior subscription.
	var snapshot models.Chat
	if err := s.DB.
		Preload("Client").
		Preload("Service").
		Preload("Budget").
		First(&snapshot, "id = ?", chat.ID).Error; err == nil {
		snapshot.Messages = []models.Message{}
		s.Notifier.Publish(realtime.ProfessionalChannel(professionalID), realtime.EventNewChat, &snapshot)
	}

	return &b, nil
}

func (s *Service) touchChat(chatID uuid.UUID) {
	s.DB.Model(&models.Chat{}).Where("id = ?", chatID).Update("last_message_at", time.Now())
}

func (s *Service) notifyListUpdate(professionalID, chatID uuid.UUID, b *models.Budget) {
	s.Notifier.Publish(realtime.ProfessionalChannel(professionalID), realtime.EventChatListUpdate, map[string]interface{}{
		"chatId": chatID,
		"budget": budgetSnapshot(b),
	})
}

func budgetSnapshot(b *models.Budget) map[string]interface{} {
	return map[string]interface{}{
		"id":          b.ID,
		"status":      b.Status,
		"price":       b.Price,
		"description": b.Description,
		"expiresAt":   b.ExpiresAt,
	}
}

// SetPrice records the professional's quote for a chat's budget, creating
// the row if the client never filed a request. The legacy flow jumps the
// budget straight to ACCEPTED; QuoteMode leaves it QUOTED for the client to
// answer.
func (s *Service) SetPrice(chatID, serviceID uuid.UUID, price, description string) (*models.Budget, error) {
	if chatID == uuid.Nil || serviceID == uuid.Nil || price == "" {
		return nil, fmt.Errorf("%w: chatId, serviceId and price are required", apperr.ErrValidation)
	}

	var chat models.Chat
	err := s.DB.
		Preload("Client").
		Preload("Professional").
		Preload("Service").
		First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: chat", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	status := models.BudgetAccepted
	if s.QuoteMode {
		status = models.BudgetQuoted
	}

	quote := map[string]interface{}{
		"price":       price,
		"description": description,
		"status":      status,
	}

	var b models.Budget
	err = s.DB.Where("chat_id = ?", chatID).First(&b).Error
	switch {
	case err == nil:
		if err := s.DB.Model(&models.Budget{}).Where("id = ?", b.ID).Updates(quote).Error; err != nil {
			return nil, err
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		b = models.Budget{
			ChatID:      chatID,
			ServiceID:   serviceID,
			Price:       price,
			Description: description,
			Status:      status,
			ExpiresAt:   time.Now().Add(ttl),
		}
		if cerr := s.DB.Create(&b).Error; cerr != nil {
			if !db.IsDuplicate(cerr) {
				return nil, cerr
			}
			// lost a creation race on the chat's unique budget; quote the
			// winner's row instead
			var winner models.Budget
			if ferr := s.DB.Where("chat_id = ?", chatID).First(&winner).Error; ferr != nil {
				return nil, ferr
			}
			if uerr := s.DB.Model(&models.Budget{}).Where("id = ?", winner.ID).Updates(quote).Error; uerr != nil {
				return nil, uerr
			}
			b = winner
		}

	default:
		return nil, err
	}

	if err := s.DB.First(&b, "id = ?", b.ID).Error; err != nil {
		return nil, err
	}

	serviceName := "Service"
	if chat.Service != nil {
		serviceName = chat.Service.Title
	}
	professionalName := ""
	if chat.Professional != nil {
		professionalName = chat.Professional.Name
	}
	s.Notifier.Publish(realtime.ClientChannel(chat.ClientID), realtime.EventNewBudget, map[string]interface{}{
		"budgetId":         b.ID,
		"chatId":           chatID,
		"serviceId":        serviceID,
		"serviceName":      serviceName,
		"price":            b.Price,
		"description":      b.Description,
		"professionalName": professionalName,
		"expiresAt":        b.ExpiresAt,
	})

	return &b, nil
}

var answerable = []models.BudgetStatus{models.BudgetPending, models.BudgetQuoted}

// Accept is the client's yes to a pending or quoted budget. Accepting past
// the deadline materializes EXPIRED and fails.
func (s *Service) Accept(budgetID uuid.UUID) (*models.Budget, error) {
	b, err := s.ByID(budgetID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BudgetPending && b.Status != models.BudgetQuoted {
		return nil, fmt.Errorf("%w: budget already answered", apperr.ErrConflict)
	}

	if time.Now().After(b.ExpiresAt) {
		s.DB.Model(&models.Budget{}).
			Where("id = ? AND status IN ?", budgetID, answerable).
			Update("status", models.BudgetExpired)
		return nil, fmt.Errorf("%w", apperr.ErrBudgetExpired)
	}

	tx := s.DB.Model(&models.Budget{}).
		Where("id = ? AND status IN ?", budgetID, answerable).
		Update("status", models.BudgetAccepted)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: budget already answered", apperr.ErrConflict)
	}

	clientName := ""
	if b.Chat != nil && b.Chat.Client != nil {
		clientName = b.Chat.Client.Name
	}
	if b.Chat != nil {
		s.Notifier.Publish(realtime.ProfessionalChannel(b.Chat.ProfessionalID), realtime.EventBudgetAccepted, map[string]interface{}{
			"budgetId":   budgetID,
			"chatId":     b.ChatID,
			"clientName": clientName,
		})
	}

	return s.ByID(budgetID)
}

// Reject is the client's no to a pending or quoted budget.
func (s *Service) Reject(budgetID uuid.UUID) (*models.Budget, error) {
	b, err := s.ByID(budgetID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BudgetPending && b.Status != models.BudgetQuoted {
		return nil, fmt.Errorf("%w: budget already answered", apperr.ErrConflict)
	}

	tx := s.DB.Model(&models.Budget{}).
		Where("id = ? AND status IN ?", budgetID, answerable).
		Update("status", models.BudgetRejected)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: budget already answered", apperr.ErrConflict)
	}

	if b.Chat != nil {
		s.Notifier.Publish(realtime.ProfessionalChannel(b.Chat.ProfessionalID), realtime.EventBudgetRejected, map[string]interface{}{
			"budgetId": budgetID,
			"chatId":   b.ChatID,
		})
	}

	return s.ByID(budgetID)
}

// Cancel is the client's "redo": it force-rejects the budget whatever its
// current status so a fresh negotiation can start on the same chat.
func (s *Service) Cancel(budgetID uuid.UUID) (*models.Budget, error) {
	b, err := s.ByID(budgetID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.Budget{}).
		Where("id = ?", budgetID).
		Update("status", models.BudgetRejected).Error; err != nil {
		return nil, err
	}

	updated, err := s.ByID(budgetID)
	if err != nil {
		return nil, err
	}

	if b.Chat != nil {
		proChannel := realtime.ProfessionalChannel(b.Chat.ProfessionalID)
		s.Notifier.Publish(proChannel, realtime.EventBudgetCancelled, map[string]interface{}{
			"budgetId": budgetID,
			"chatId":   b.ChatID,
		})
		// chat-list UIs converge on the new status as well
		s.Notifier.Publish(proChannel, realtime.EventChatListUpdate, map[string]interface{}{
			"chatId": b.ChatID,
			"budget": budgetSnapshot(updated),
		})
	}

	return updated, nil
}

func (s *Service) ByID(budgetID uuid.UUID) (*models.Budget, error) {
	var b models.Budget
	err := s.DB.
		Preload("Chat").
		Preload("Chat.Client").
		Preload("Chat.Professional").
		Preload("Chat.Service").
		First(&b, "id = ?", budgetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: budget", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ByChat returns the chat's budgets, optionally filtered by status. The 1:1
// constraint means at most one row, but the shape stays a list for the
// client's sake.
func (s *Service) ByChat(chatID uuid.UUID, status models.BudgetStatus) ([]models.Budget, error) {
	q := s.DB.Where("chat_id = ?", chatID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Budget
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

// AcceptedForService finds the most recent accepted budget of a client for a
// service. Used to resume a negotiation after reconnect.
func (s *Service) AcceptedForService(serviceID, clientID uuid.UUID) (*models.Budget, error) {
	return s.latestFor(serviceID, clientID, models.BudgetAccepted, false, false)
}

// PendingForService finds the most recent still-unpriced, unexpired request.
func (s *Service) PendingForService(serviceID, clientID uuid.UUID) (*models.Budget, error) {
	return s.latestFor(serviceID, clientID, models.BudgetPending, true, true)
}

// QuotedForService finds the most recent priced-but-unanswered, unexpired
// budget.
func (s *Service) QuotedForService(serviceID, clientID uuid.UUID) (*models.Budget, error) {
	return s.latestFor(serviceID, clientID, models.BudgetQuoted, false, true)
}

// latestFor is the shared most-recent-first projection. Time-sensitive
// statuses exclude rows past expires_at: logically expired budgets are never
// surfaced as actionable even though the row still says PENDING/QUOTED.
func (s *Service) latestFor(serviceID, clientID uuid.UUID, status models.BudgetStatus, unpriced, checkExpiry bool) (*models.Budget, error) {
	q := s.DB.
		Joins("JOIN chats ON chats.id = budgets.chat_id").
		Where("budgets.service_id = ? AND budgets.status = ? AND chats.client_id = ?", serviceID, status, clientID)
	if unpriced {
		q = q.Where("budgets.price = ?", models.SentinelPrice)
	}
	if checkExpiry {
		q = q.Where("budgets.expires_at > ?", time.Now())
	}

	var b models.Budget
	err := q.Order("budgets.created_at DESC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: budget", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
