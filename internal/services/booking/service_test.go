package booking

import (
	"testing"
	"time"

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

func (r *recorder) last(channel, event string) (published, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Channel == channel && r.events[i].Event == event {
			return r.events[i], true
		}
	}
	return published{}, false
}

type fixture struct {
	gdb     *gorm.DB
	rec     *recorder
	svc     *Service
	client  *models.User
	pro     *models.User
	service *models.Service
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	gdb, err := db.Connect("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	client := &models.User{
		Name:         "Carla Client",
		Email:        uuid.NewString() + "@test.local",
		Phone:        "+5511999990000",
		PasswordHash: "x",
		Role:         models.RoleClient,
	}
	require.NoError(t, gdb.Create(client).Error)

	pro := &models.User{
		Name:         "Paula Pro",
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Role:         models.RolePro,
	}
	require.NoError(t, gdb.Create(pro).Error)

	profile := &models.ProfessionalProfile{UserID: pro.ID}
	require.NoError(t, gdb.Create(profile).Error)

	price := 120.0
	service := &models.Service{
		ProfessionalID: profile.ID,
		Title:          "Garden maintenance",
		PricingType:    models.PricingFixed,
		Price:          &price,
	}
	require.NoError(t, gdb.Create(service).Error)

	rec := &recorder{}
	return &fixture{
		gdb:     gdb,
		rec:     rec,
		svc:     NewService(gdb, rec),
		client:  client,
		pro:     pro,
		service: service,
	}
}

func (f *fixture) createBooking(t *testing.T) *models.Booking {
	t.Helper()
	when := time.Now().Add(48 * time.Hour)
	b, err := f.svc.Create(f.client.ID, models.RoleClient, CreateInput{
		ProfessionalID: f.pro.ID,
		ServiceID:      f.service.ID,
		ScheduledAt:    &when,
		Address:        "Rua das Flores 10",
	})
	require.NoError(t, err)
	return b
}

func TestCreateSnapshotsClientContact(t *testing.T) {
	f := newFixture(t, "booking_create")

	b := f.createBooking(t)
	assert.Equal(t, models.BookingRequested, b.Status)
	assert.Equal(t, f.client.Name, b.ClientName)
	assert.Equal(t, f.client.Phone, b.ClientPhone)
	assert.Equal(t, f.client.Email, b.ClientEmail)

	ev, found := f.rec.last(realtime.ProfessionalChannel(f.pro.ID), realtime.EventNewBookingOffer)
	require.True(t, found)
	payload := ev.Payload.(map[string]interface{})
	assert.Equal(t, b.ID, payload["id"])
	clientInfo := payload["client"].(map[string]interface{})
	assert.Equal(t, f.client.Name, clientInfo["name"])
}

func TestCreateRejectsNonClients(t *testing.T) {
	f := newFixture(t, "booking_role")

	when := time.Now().Add(time.Hour)
	_, err := f.svc.Create(f.pro.ID, models.RolePro, CreateInput{
		ProfessionalID: f.pro.ID,
		ServiceID:      f.service.ID,
		ScheduledAt:    &when,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateRequiresSchedule(t *testing.T) {
	f := newFixture(t, "booking_schedule")

	_, err := f.svc.Create(f.client.ID, models.RoleClient, CreateInput{
		ProfessionalID: f.pro.ID,
		ServiceID:      f.service.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateRequiresExistingService(t *testing.T) {
	f := newFixture(t, "booking_service_missing")

	when := time.Now().Add(time.Hour)
	_, err := f.svc.Create(f.client.ID, models.RoleClient, CreateInput{
		ProfessionalID: f.pro.ID,
		ServiceID:      uuid.New(),
		ScheduledAt:    &when,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAcceptNotifiesClient(t *testing.T) {
	f := newFixture(t, "booking_accept")

	b := f.createBooking(t)
	accepted, err := f.svc.Accept(b.ID, f.pro.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, accepted.Status)

	ev, found := f.rec.last(realtime.ClientChannel(f.client.ID), realtime.EventBookingAccepted)
	require.True(t, found)
	payload := ev.Payload.(map[string]interface{})
	assert.Equal(t, models.BookingAccepted, payload["status"])
	assert.NotNil(t, payload["scheduledAt"])
}

func TestAnswerIsSingleShot(t *testing.T) {
	f := newFixture(t, "booking_single_shot")

	b := f.createBooking(t)
	_, err := f.svc.Accept(b.ID, f.pro.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(b.ID, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.Reject(b.ID, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := f.svc.ByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, stored.Status)
}

func TestAnswerByWrongProfessional(t *testing.T) {
	f := newFixture(t, "booking_wrong_pro")

	b := f.createBooking(t)
	intruder := &models.User{
		Name:         "Someone Else",
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Role:         models.RolePro,
	}
	require.NoError(t, f.gdb.Create(intruder).Error)

	_, err := f.svc.Accept(b.ID, intruder.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := f.svc.ByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRequested, stored.Status)
}

func TestRejectCancels(t *testing.T) {
	f := newFixture(t, "booking_reject")

	b := f.createBooking(t)
	rejected, err := f.svc.Reject(b.ID, f.pro.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, rejected.Status)

	_, found := f.rec.last(realtime.ClientChannel(f.client.ID), realtime.EventBookingRejected)
	assert.True(t, found)
}

func TestListPendingOnlyRequested(t *testing.T) {
	f := newFixture(t, "booking_pending")

	first := f.createBooking(t)
	_, err := f.svc.Accept(first.ID, f.pro.ID)
	require.NoError(t, err)

	second := f.createBooking(t)

	pending, err := f.svc.ListPending(f.pro.ID, models.RolePro)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = f.svc.ListPending(f.pro.ID, models.RoleClient)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestListMine(t *testing.T) {
	f := newFixture(t, "booking_mine")

	f.createBooking(t)
	f.createBooking(t)

	mine, err := f.svc.ListMine(f.client.ID, models.RoleClient)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	proSide, err := f.svc.ListMine(f.pro.ID, models.RolePro)
	require.NoError(t, err)
	assert.Len(t, proSide, 2)
}
