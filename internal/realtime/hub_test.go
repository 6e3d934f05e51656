package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, 8)}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case frame := <-c.Send:
			out = append(out, frame)
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlyJoined(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	h.RegisterClient(a)
	h.RegisterClient(b)

	channel := ChatChannel(uuid.New())
	h.Join(a.ID, channel)

	h.Broadcast(channel, []byte("hello"))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 0)
}

func TestJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.RegisterClient(a)

	channel := ChatChannel(uuid.New())
	h.Join(a.ID, channel)
	h.Join(a.ID, channel)

	h.Broadcast(channel, []byte("once"))
	assert.Len(t, drain(a), 1)

	h.Leave(a.ID, channel)
	h.Broadcast(channel, []byte("gone"))
	assert.Len(t, drain(a), 0)
}

func TestLeaveUnknownChannelIsNoop(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.RegisterClient(a)

	h.Leave(a.ID, "chat:never-joined")
	h.Leave("no-such-client", "chat:whatever")
}

func TestChannelNamespacesAreDisjoint(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.RegisterClient(a)

	userID := uuid.New()
	h.Join(a.ID, ProfessionalChannel(userID))

	// the same user id in a different namespace is a different channel
	h.Broadcast(ClientChannel(userID), []byte("client side"))
	assert.Len(t, drain(a), 0)

	h.Broadcast(ProfessionalChannel(userID), []byte("pro side"))
	assert.Len(t, drain(a), 1)
}

func TestSlowConsumerIsSkipped(t *testing.T) {
	h := NewHub()
	slow := &Client{ID: "slow", Send: make(chan []byte, 1)}
	h.RegisterClient(slow)

	channel := ChatChannel(uuid.New())
	h.Join(slow.ID, channel)

	h.Broadcast(channel, []byte("one"))
	h.Broadcast(channel, []byte("two")) // buffer full, dropped

	frames := drain(slow)
	require.Len(t, frames, 1)
	assert.Equal(t, "one", string(frames[0]))
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.RegisterClient(a)
	h.UnregisterClient(a)

	_, open := <-a.Send
	assert.False(t, open)

	// a stale unregister for a replaced connection must not close the new one
	fresh := newTestClient("a")
	h.RegisterClient(fresh)
	h.UnregisterClient(a)

	select {
	case <-fresh.Send:
		t.Fatal("fresh connection's channel should stay open and empty")
	default:
	}
}

func TestDefaultNotifierLifecycle(t *testing.T) {
	assert.Panics(t, func() { Default() })

	n := NewNotifier(NewHub(), nil)
	Init(n)
	assert.Same(t, n, Default())

	assert.Panics(t, func() { Init(n) })
}

func TestNotifierFrameShape(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.RegisterClient(a)

	chatID := uuid.New()
	h.Join(a.ID, ChatChannel(chatID))

	n := NewNotifier(h, nil)
	n.Publish(ChatChannel(chatID), EventNewMessage, map[string]interface{}{"content": "hi"})

	frames := drain(a)
	require.Len(t, frames, 1)

	var frame struct {
		Event   string                 `json:"event"`
		Channel string                 `json:"channel"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &frame))
	assert.Equal(t, EventNewMessage, frame.Event)
	assert.Equal(t, ChatChannel(chatID), frame.Channel)
	assert.Equal(t, "hi", frame.Payload["content"])
}
