package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tienda/internal/database"
	"tienda/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newOrder(number string) *models.Order {
	return &models.Order{
		OrderNumber:    number,
		IdempotencyKey: uuid.NewString(),
		Status:         models.OrderPending,
		PaymentStatus:  models.PaymentPending,
		PaymentMethod:  models.PaymentCash,
		ShippingMethod: models.ShippingPickup,
		Subtotal:       decimal.NewFromInt(100),
		TotalAmount:    decimal.NewFromInt(100),
	}
}

func TestCartAddQuantityIncrementsInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMCartRepository(newTestDB(t))

	first, err := repo.AddQuantity(ctx, "u1", "p1", "", 2)
	require.NoError(t, err)
	second, err := repo.AddQuantity(ctx, "u1", "p1", "", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	_, err = repo.AddQuantity(ctx, "u1", "p1", "red", 1)
	require.NoError(t, err)
	items, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCartConcurrentAddsKeepOneLine(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMCartRepository(newTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddQuantity(ctx, "u1", "p1", "", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestCartScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMCartRepository(newTestDB(t))

	item, err := repo.AddQuantity(ctx, "u1", "p1", "", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.SetQuantity(ctx, "u2", item.ID, 4), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", item.ID), ErrNotFound)
	require.NoError(t, repo.Clear(ctx, "u1"))

	items, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderUpdateGuards(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMOrderRepository(newTestDB(t))

	order := newOrder("ORD-1")
	require.NoError(t, repo.Create(ctx, order))

	paid := models.PaymentPaid
	pending := models.PaymentPending
	require.NoError(t, repo.Update(ctx, order.ID, models.OrderUpdate{PaymentStatus: &paid, IfPaymentStatus: &pending}))

	err := repo.Update(ctx, order.ID, models.OrderUpdate{PaymentStatus: &paid, IfPaymentStatus: &pending})
	assert.ErrorIs(t, err, ErrConflict)

	err = repo.Update(ctx, "missing", models.OrderUpdate{PaymentStatus: &paid})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, models.OrderPending, stored.Status)
}

func TestOrderPreloadsItems(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMOrderRepository(newTestDB(t))

	order := newOrder("ORD-2")
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, repo.CreateItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(100)},
	}))

	stored, err := repo.GetByIdempotencyKey(ctx, order.IdempotencyKey)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(stored.Items[0].TotalPrice))

	require.NoError(t, repo.Delete(ctx, order.ID))
	_, err = repo.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactorRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGORMOrderRepository(db)
	tx := NewGORMTransactor(db)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, newOrder("ORD-3")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	orders, err := repo.List(ctx, models.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSavepointKeepsOuterWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	orders := NewGORMOrderRepository(db)
	addresses := NewGORMAddressRepository(db)
	tx := NewGORMTransactor(db)

	order := newOrder("ORD-4")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		spErr := tx.Savepoint(ctx, "address", func(ctx context.Context) error {
			if err := addresses.Create(ctx, &models.Address{UserID: "u1", Street: "Calle 1"}); err != nil {
				return err
			}
			return errors.New("address rejected")
		})
		assert.Error(t, spErr)
		return nil
	})
	require.NoError(t, err)

	_, err = orders.GetByID(ctx, order.ID)
	assert.NoError(t, err)
	saved, err := addresses.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestUserClearFirstPurchase(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMUserRepository(newTestDB(t))

	user := &models.User{Username: "ana", Email: "ana@example.com", Password: "x", FirstPurchase: true}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.ClearFirstPurchase(ctx, user.ID))
	require.NoError(t, repo.ClearFirstPurchase(ctx, user.ID))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.FirstPurchase)
	assert.Equal(t, models.RoleCustomer, stored.Role)
}

func TestProductSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMProductRepository(newTestDB(t))

	p := &models.Product{Name: "Taladro", Price: decimal.NewFromInt(899), Stock: 3, Active: true}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
}

func TestMockOrderRepositoryFailItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepository()
	repo.FailItems = errors.New("disk full")

	order := newOrder("ORD-5")
	require.NoError(t, repo.Create(ctx, order))
	assert.Error(t, repo.CreateItems(ctx, []models.OrderItem{{OrderID: order.ID}}))
	require.NoError(t, repo.Delete(ctx, order.ID))
	assert.Equal(t, 0, repo.Count())
}
