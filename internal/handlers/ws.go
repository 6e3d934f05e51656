package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/iuork/iuork-backend/internal/realtime"
	"github.com/iuork/iuork-backend/internal/utils"
)

const sendBuffer = 64

// WSHandler upgrades connections and runs the subscription protocol. Clients
// authenticate with ?token= and then send small JSON control frames:
//
//	{"type":"join-chat","chatId":"..."}
//	{"type":"leave-chat","chatId":"..."}
//	{"type":"join-professional"}
//	{"type":"join-client"}
//
// Everything the server pushes is an event frame produced by the notifier.
type WSHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

type controlFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

// Upgrade gates the HTTP->WS upgrade and stashes the authenticated user id.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return fiber.ErrUnauthorized
	}

	_, claims, err := utils.ParseToken(h.JWTSecret, token)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("wsUserId", uid)
	return c.Next()
}

// Serve is the websocket.New handler body: register, pump, read until close.
func (h *WSHandler) Serve(conn *websocket.Conn) {
	uid, ok := conn.Locals("wsUserId").(uuid.UUID)
	if !ok {
		conn.Close()
		return
	}

	client := &realtime.Client{
		ID:   uid.String() + ":" + uuid.NewString(),
		Send: make(chan []byte, sendBuffer),
	}
	h.Hub.RegisterClient(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for frame := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("ws: bad control frame from %s", client.ID)
			continue
		}

		switch frame.Type {
		case "join-chat":
			if chatID, err := uuid.Parse(frame.ChatID); err == nil {
				h.Hub.Join(client.ID, realtime.ChatChannel(chatID))
			}
		case "leave-chat":
			if chatID, err := uuid.Parse(frame.ChatID); err == nil {
				h.Hub.Leave(client.ID, realtime.ChatChannel(chatID))
			}
		case "join-professional":
			// personal channels are bound to the token's user, never a
			// client-supplied id
			h.Hub.Join(client.ID, realtime.ProfessionalChannel(uid))
		case "join-client":
			h.Hub.Join(client.ID, realtime.ClientChannel(uid))
		}
	}

	// unregister closes Send, which unblocks the writer
	h.Hub.UnregisterClient(client)
	conn.Close()
	<-done
}
