package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/db"
	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/realtime"
)

type published struct {
	Channel string
	Event   string
	Payload interface{}
}

type recorder struct {
	events []published
}

func (r *recorder) Publish(channel, event string, payload interface{}) {
	r.events = append(r.events, published{Channel: channel, Event: event, Payload: payload})
}

func (r *recorder) count(channel, event string) int {
	n := 0
	for _, e := range r.events {
		if e.Channel == channel && e.Event == event {
			n++
		}
	}
	return n
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := models.User{
		Name:         "user " + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	gdb := newTestDB(t, "chat_getorcreate")
	rec := &recorder{}
	svc := NewService(gdb, rec)

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)

	first, created, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	gdb.Model(&models.Chat{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGetOrCreateDistinguishesServices(t *testing.T) {
	gdb := newTestDB(t, "chat_services")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	serviceID := uuid.New()

	general, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	scoped, created, err := svc.GetOrCreate(client.ID, pro.ID, serviceID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, general.ID, scoped.ID)
}

func TestGetOrCreateRecoversFromCreateRace(t *testing.T) {
	gdb := newTestDB(t, "chat_create_race")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)

	// a competing first call wins the insert inside our lookup/create window
	competing := &models.Chat{}
	fired := false
	err := gdb.Callback().Create().Before("gorm:create").Register("race_chat_insert", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "chats" {
			return
		}
		fired = true
		*competing = models.Chat{
			ClientID:       client.ID,
			ProfessionalID: pro.ID,
			ServiceID:      uuid.Nil,
		}
		require.NoError(t, gdb.Create(competing).Error)
	})
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Callback().Create().Remove("race_chat_insert") })

	ch, created, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, competing.ID, ch.ID)

	var count int64
	gdb.Model(&models.Chat{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGetOrCreateValidation(t *testing.T) {
	gdb := newTestDB(t, "chat_validation")
	svc := NewService(gdb, &recorder{})

	_, _, err := svc.GetOrCreate(uuid.Nil, uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckDoesNotCreate(t *testing.T) {
	gdb := newTestDB(t, "chat_check")
	svc := NewService(gdb, &recorder{})

	_, err := svc.Check(uuid.New(), uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var count int64
	gdb.Model(&models.Chat{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestAppendFirstMessageAnnouncesChat(t *testing.T) {
	gdb := newTestDB(t, "chat_first_message")
	rec := &recorder{}
	svc := NewService(gdb, rec)

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)

	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	msg, err := svc.Append(ch.ID, client.ID, AppendInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, msg.MessageType)

	proChannel := realtime.ProfessionalChannel(pro.ID)
	assert.Equal(t, 1, rec.count(realtime.ChatChannel(ch.ID), realtime.EventNewMessage))
	assert.Equal(t, 1, rec.count(proChannel, realtime.EventChatListUpdate))
	assert.Equal(t, 1, rec.count(realtime.ClientChannel(client.ID), realtime.EventChatListUpdate))
	assert.Equal(t, 1, rec.count(proChannel, realtime.EventNewChat))

	_, err = svc.Append(ch.ID, pro.ID, AppendInput{Content: "hi back"})
	require.NoError(t, err)

	// the announcement happens exactly once, on the first message
	assert.Equal(t, 1, rec.count(proChannel, realtime.EventNewChat))
	assert.Equal(t, 2, rec.count(proChannel, realtime.EventChatListUpdate))
}

func TestAppendRequiresContentOrMedia(t *testing.T) {
	gdb := newTestDB(t, "chat_empty_message")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.Append(ch.ID, client.ID, AppendInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Append(ch.ID, client.ID, AppendInput{
		MediaURL:    "https://cdn.test.local/a.jpg",
		MessageType: models.MessageImage,
	})
	assert.NoError(t, err)
}

func TestAppendBumpsLastMessageAt(t *testing.T) {
	gdb := newTestDB(t, "chat_bump")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	before := ch.LastMessageAt
	_, err = svc.Append(ch.ID, client.ID, AppendInput{Content: "ping"})
	require.NoError(t, err)

	updated, err := svc.ByID(ch.ID)
	require.NoError(t, err)
	assert.True(t, !updated.LastMessageAt.Before(before))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	gdb := newTestDB(t, "chat_markread")
	rec := &recorder{}
	svc := NewService(gdb, rec)

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.Append(ch.ID, pro.ID, AppendInput{Content: "quote attached"})
	require.NoError(t, err)

	items, err := svc.ListForUser(client.ID, models.RoleClient)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, items[0].UnreadCount)

	require.NoError(t, svc.MarkRead(ch.ID, client.ID))
	require.NoError(t, svc.MarkRead(ch.ID, client.ID))

	items, err = svc.ListForUser(client.ID, models.RoleClient)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 0, items[0].UnreadCount)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	gdb := newTestDB(t, "chat_markread_own")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	msg, err := svc.Append(ch.ID, client.ID, AppendInput{Content: "mine"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ch.ID, client.ID))

	var stored models.Message
	require.NoError(t, gdb.First(&stored, "id = ?", msg.ID).Error)
	assert.False(t, stored.IsRead)
}

func TestDeleteMessage(t *testing.T) {
	gdb := newTestDB(t, "chat_delete")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	msg, err := svc.Append(ch.ID, client.ID, AppendInput{Content: "oops"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMessage(msg.ID))
	assert.ErrorIs(t, svc.DeleteMessage(msg.ID), apperr.ErrNotFound)
}

func TestMessagesPagination(t *testing.T) {
	gdb := newTestDB(t, "chat_pagination")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	pro := createUser(t, gdb, models.RolePro)
	ch, _, err := svc.GetOrCreate(client.ID, pro.ID, uuid.Nil)
	require.NoError(t, err)

	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.Append(ch.ID, client.ID, AppendInput{Content: body})
		require.NoError(t, err)
	}

	msgs, err := svc.Messages(ch.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)

	rest, err := svc.Messages(ch.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "three", rest[0].Content)
}

func TestListForUserOrdersByActivity(t *testing.T) {
	gdb := newTestDB(t, "chat_list_order")
	svc := NewService(gdb, &recorder{})

	client := createUser(t, gdb, models.RoleClient)
	proA := createUser(t, gdb, models.RolePro)
	proB := createUser(t, gdb, models.RolePro)

	chatA, _, err := svc.GetOrCreate(client.ID, proA.ID, uuid.Nil)
	require.NoError(t, err)
	chatB, _, err := svc.GetOrCreate(client.ID, proB.ID, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.Append(chatB.ID, client.ID, AppendInput{Content: "first"})
	require.NoError(t, err)
	_, err = svc.Append(chatA.ID, client.ID, AppendInput{Content: "second"})
	require.NoError(t, err)

	items, err := svc.ListForUser(client.ID, models.RoleClient)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, chatA.ID, items[0].Chat.ID)
	assert.Equal(t, chatB.ID, items[1].Chat.ID)
	require.NotNil(t, items[0].LastMessage)
	assert.Equal(t, "second", items[0].LastMessage.Content)
}

func TestPreviewTruncation(t *testing.T) {
	long := make([]rune, 0, 120)
	for i := 0; i < 120; i++ {
		long = append(long, 'x')
	}

	got := preview(string(long))
	assert.Equal(t, previewLen+1, len([]rune(got)))
	assert.Equal(t, "…", string([]rune(got)[previewLen:]))

	assert.Equal(t, "short", preview("short"))
}
