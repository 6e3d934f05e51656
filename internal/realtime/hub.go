package realtime

import (
	"log"
	"sync"
)

// Client is one WebSocket connection. A user may hold several (multi-tab,
// multi-device); each joins channels independently. The hub never touches the
// socket itself; frames leave through Send and the owning handler writes them.
type Client struct {
	ID    string
	Send  chan []byte
	rooms map[string]bool
}

// Hub owns channel membership for all live connections. Membership is only
// ever touched through the hub's own lock; the engines publish through
// Notifier and never see connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.rooms == nil {
		c.rooms = make(map[string]bool)
	}
	h.clients[c.ID] = c
	log.Printf("realtime: client registered: %s", c.ID)
}

func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.ID]; ok && old == c {
		delete(h.clients, c.ID)
		close(old.Send)
		log.Printf("realtime: client unregistered: %s", c.ID)
	}
}

// Join adds the connection to a channel. Joining twice is a no-op.
func (h *Hub) Join(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.rooms[channel] = true
	}
}

// Leave removes the connection from a channel. Leaving a channel the
// connection never joined is a no-op.
func (h *Hub) Leave(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		delete(c.rooms, channel)
	}
}

// Broadcast delivers a frame to every connection joined to the channel.
// Slow consumers are skipped rather than blocking the caller.
func (h *Hub) Broadcast(channel string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.rooms[channel] {
			continue
		}
		select {
		case c.Send <- frame:
		default:
			// buffer full, drop; the store stays authoritative
		}
	}
}
