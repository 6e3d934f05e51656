package realtime

import "github.com/google/uuid"

// Wire names of the events the backend emits. These are a stable contract
// with the mobile/web clients.
const (
	EventNewMessage     = "new-message"
	EventMessageRead    = "message-read"
	EventNewChat        = "new-chat"
	EventChatListUpdate = "chat-list-update"

	EventNewBudget       = "new-budget"
	EventBudgetAccepted  = "budget-accepted"
	EventBudgetRejected  = "budget-rejected"
	EventBudgetCancelled = "budget-cancelled"

	EventNewBookingOffer = "new-booking-offer"
	EventBookingAccepted = "booking-accepted"
	EventBookingRejected = "booking-rejected"
)

// Channels are a three-way partition: a room per chat thread plus a personal
// room per side of the marketplace. Joining one implies nothing about the
// others.
func ChatChannel(chatID uuid.UUID) string { return "chat:" + chatID.String() }

func ProfessionalChannel(userID uuid.UUID) string { return "professional:" + userID.String() }

func ClientChannel(userID uuid.UUID) string { return "client:" + userID.String() }
