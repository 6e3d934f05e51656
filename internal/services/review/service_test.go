package review

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/apperr"
	"github.com/iuork/iuork-backend/internal/db"
	"github.com/iuork/iuork-backend/internal/models"
)

type fixture struct {
	gdb     *gorm.DB
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

	service := &models.Service{
		ProfessionalID: profile.ID,
		Title:          "Haircut",
		PricingType:    models.PricingFixed,
	}
	require.NoError(t, gdb.Create(service).Error)

	return &fixture{gdb: gdb, svc: NewService(gdb), client: client, pro: pro, service: service}
}

func TestCreateResolvesProfessional(t *testing.T) {
	f := newFixture(t, "review_create")

	r, err := f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 5, "great work")
	require.NoError(t, err)
	assert.Equal(t, f.pro.ID, r.ProfessionalID)
	assert.Equal(t, 5, r.Rating)
	require.NotNil(t, r.Client)
	assert.Equal(t, f.client.Name, r.Client.Name)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, "review_validation")

	_, err := f.svc.Create(f.client.ID, models.RolePro, f.service.ID, 4, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 0, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 6, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(f.client.ID, models.RoleClient, uuid.New(), 4, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateOncePerServiceAndClient(t *testing.T) {
	f := newFixture(t, "review_once")

	_, err := f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 4, "good")
	require.NoError(t, err)

	_, err = f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 1, "changed my mind")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var count int64
	f.gdb.Model(&models.Review{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestListScopedToService(t *testing.T) {
	f := newFixture(t, "review_list")

	other := &models.User{
		Name:         "Second Client",
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Role:         models.RoleClient,
	}
	require.NoError(t, f.gdb.Create(other).Error)

	_, err := f.svc.Create(f.client.ID, models.RoleClient, f.service.ID, 5, "first")
	require.NoError(t, err)
	_, err = f.svc.Create(other.ID, models.RoleClient, f.service.ID, 3, "second")
	require.NoError(t, err)

	scoped, err := f.svc.List(f.service.ID)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	none, err := f.svc.List(uuid.New())
	require.NoError(t, err)
	assert.Len(t, none, 0)

	all, err := f.svc.List(uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
