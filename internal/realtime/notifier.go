package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher is what the engines depend on. Delivery is best-effort and
// fire-and-forget: a failed publish must never fail the state change that
// triggered it, so Publish returns nothing.
type Publisher interface {
	Publish(channel, event string, payload interface{})
}

// Notifier fans events out to local WebSocket connections and side-publishes
// the same frame to redis (channel "events:<name>") for push workers and
// other instances. It is not a system of record; every event it carries can
// be rebuilt from the database.
type Notifier struct {
	Hub *Hub
	RDB *redis.Client
}

func NewNotifier(hub *Hub, rdb *redis.Client) *Notifier {
	return &Notifier{Hub: hub, RDB: rdb}
}

type eventFrame struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload,omitempty"`
}

func (n *Notifier) Publish(channel, event string, payload interface{}) {
	frame, err := json.Marshal(eventFrame{Event: event, Channel: channel, Payload: payload})
	if err != nil {
		log.Printf("realtime: marshal %s failed: %v", event, err)
		return
	}

	n.Hub.Broadcast(channel, frame)

	if n.RDB != nil {
		if err := n.RDB.Publish(context.Background(), "events:"+channel, frame).Err(); err != nil {
			log.Printf("realtime: redis publish %s failed: %v", event, err)
		}
	}
}

var defaultNotifier *Notifier

// Init installs the process-wide notifier. It must run exactly once, at
// startup, before any request handler can publish.
func Init(n *Notifier) {
	if defaultNotifier != nil {
		panic("realtime: Init called twice")
	}
	defaultNotifier = n
}

// Default returns the process-wide notifier. Calling it before Init is a
// programming error, not a delivery failure, and panics loudly.
func Default() *Notifier {
	if defaultNotifier == nil {
		panic("realtime: notifier used before Init")
	}
	return defaultNotifier
}
