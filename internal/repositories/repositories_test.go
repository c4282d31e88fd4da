package repositories_test

import (
	"errors"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestGORMOrderRepository_CreateAndLookup(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(newTestDB(t))

	order := &models.Order{
		ItemsJSON:     datatypes.JSON(`{"pr1":[1,"Kurta",799]}`),
		Name:          "Asha",
		Email:         "Asha@Example.com",
		City:          "Pune",
		Amount:        799,
		PaymentMethod: models.PaymentMethodUPI,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
	}
	require.NoError(t, repo.Create(order))
	assert.NotZero(t, order.ID)

	found, err := repo.GetByIDAndEmail(order.ID, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Pune", found.City)
	assert.JSONEq(t, `{"pr1":[1,"Kurta",799]}`, string(found.ItemsJSON))

	_, err = repo.GetByIDAndEmail(order.ID, "someone@else.com")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.GetByID(order.ID + 100)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	list, err := repo.ListByEmail("ASHA@example.com", 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGORMOrderRepository_UpdateAndList(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		o := &models.Order{Email: "x@y.com", City: "Delhi", OrderStatus: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}
		require.NoError(t, repo.Create(o))
	}

	o, err := repo.GetByID(2)
	require.NoError(t, err)
	o.OrderStatus = models.OrderStatusShipped
	o.TrackingNumber = "TRK-1"
	today := time.Now().Truncate(24 * time.Hour)
	o.ShippingDate = &today
	require.NoError(t, repo.Update(o))

	shipped, total, err := repo.List(repositories.OrderFilter{OrderStatus: models.OrderStatusShipped})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, shipped, 1)
	assert.Equal(t, "TRK-1", shipped[0].TrackingNumber)
	assert.NotNil(t, shipped[0].ShippingDate)

	page, total, err := repo.List(repositories.OrderFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	missing := &models.Order{ID: 99}
	assert.True(t, errors.Is(repo.Update(missing), repositories.ErrNotFound))
}

func TestGORMOrderRepository_SaveAllRollsBack(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(newTestDB(t))
	o := &models.Order{Email: "x@y.com", OrderStatus: models.OrderStatusPending}
	require.NoError(t, repo.Create(o))

	o.OrderStatus = models.OrderStatusConfirmed
	err := repo.SaveAll([]models.Order{*o, {ID: 42, OrderStatus: models.OrderStatusConfirmed}})
	assert.Error(t, err)

	reloaded, err := repo.GetByID(o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, reloaded.OrderStatus)
}

func TestGORMOrderUpdateRepository_Timeline(t *testing.T) {
	db := newTestDB(t)
	orders := repositories.NewGORMOrderRepository(db)
	updates := repositories.NewGORMOrderUpdateRepository(db)

	o := &models.Order{Email: "x@y.com"}
	require.NoError(t, orders.Create(o))

	base := time.Now().Add(-time.Hour)
	for i, st := range []models.StatusType{models.StatusTypeOrderPlaced, models.StatusTypePaymentReceived, models.StatusTypeShipped} {
		u := &models.OrderUpdate{OrderID: &o.ID, StatusType: st, Description: string(st), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, updates.Create(u))
	}
	orphan := &models.OrderUpdate{Description: "historical row", StatusType: models.StatusTypeOther}
	require.NoError(t, updates.Create(orphan))

	asc, err := updates.ListByOrder(o.ID, true)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, models.StatusTypeOrderPlaced, asc[0].StatusType)
	assert.Equal(t, models.StatusTypeShipped, asc[2].StatusType)

	desc, err := updates.ListByOrder(o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTypeShipped, desc[0].StatusType)

	require.NoError(t, updates.MarkNotified(asc[0].ID))
	u, err := updates.GetByID(asc[0].ID)
	require.NoError(t, err)
	assert.True(t, u.CustomerNotified)
	assert.True(t, errors.Is(updates.MarkNotified(999), repositories.ErrNotFound))
}

func TestGORMProductRepository_Catalog(t *testing.T) {
	repo := repositories.NewGORMProductRepository(newTestDB(t))
	for _, p := range []models.Product{
		{Name: "Linen Shirt", Category: "Men's Fashion", Price: 900},
		{Name: "Silk Saree", Category: "Women's Fashion", Description: "hand woven", Price: 4000},
		{Name: "Denim Jeans", Category: "Men's Fashion", Price: 1200},
	} {
		p := p
		require.NoError(t, repo.Create(&p))
	}

	cats, err := repo.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Men's Fashion", "Women's Fashion"}, cats)

	men, err := repo.GetByCategory("Men's Fashion")
	require.NoError(t, err)
	assert.Len(t, men, 2)

	found, err := repo.Search("WOVEN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Silk Saree", found[0].Name)

	require.NoError(t, repo.Delete(found[0].ID))
	assert.True(t, errors.Is(repo.Delete(found[0].ID), repositories.ErrNotFound))
}

func TestGORMUserRepository_SetFlag(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))
	a := &models.User{Email: "a@x.com", Name: "A", IsActive: true}
	b := &models.User{Email: "b@x.com", Name: "B", IsActive: true}
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))

	n, err := repo.SetFlag([]uint{a.ID, b.ID}, repositories.UserFlagEmailVerified, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := repo.GetByEmail("A@X.COM")
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)

	_, err = repo.SetFlag([]uint{a.ID}, repositories.UserFlag("is_admin"), true)
	assert.Error(t, err)
}

func TestGORMChallengeRepository_UpsertAndPurge(t *testing.T) {
	repo := repositories.NewGORMChallengeRepository(newTestDB(t))
	now := time.Now()

	ch := &models.OTPChallenge{SessionID: "s1", Kind: models.ChallengeLogin, UserID: 1, Email: "a@x.com", Code: "000123", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Save(ch))

	ch.Code = "654321"
	require.NoError(t, repo.Save(ch))

	got, err := repo.Get("s1", models.ChallengeLogin)
	require.NoError(t, err)
	assert.Equal(t, "654321", got.Code)

	_, err = repo.Get("s1", models.ChallengeRegistration)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	last, err := repo.LastResend("s1", models.ChallengeLogin)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	require.NoError(t, repo.MarkResend("s1", models.ChallengeLogin, now))
	require.NoError(t, repo.MarkResend("s1", models.ChallengeLogin, now.Add(time.Second)))
	last, err = repo.LastResend("s1", models.ChallengeLogin)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Second), last, time.Millisecond)

	n, err := repo.PurgeExpired(now.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = repo.Get("s1", models.ChallengeLogin)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}
