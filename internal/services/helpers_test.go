package services_test

import (
	"context"
	"sync"
	"testing"

	"tienda/internal/database"
	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/pkg/retry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published routing key.
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []services.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	if ev, ok := payload.(services.OrderEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// storeEnv wires the services over a private sqlite database.
type storeEnv struct {
	db        *gorm.DB
	tx        *repositories.GORMTransactor
	orders    *repositories.GORMOrderRepository
	products  *repositories.GORMProductRepository
	cart      *repositories.GORMCartRepository
	users     *repositories.GORMUserRepository
	addresses *repositories.GORMAddressRepository
	addOns    *repositories.GORMAddOnRepository
	events    *recordingPublisher
}

func newStoreEnv(t *testing.T) *storeEnv {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &storeEnv{
		db:        db,
		tx:        repositories.NewGORMTransactor(db),
		orders:    repositories.NewGORMOrderRepository(db),
		products:  repositories.NewGORMProductRepository(db),
		cart:      repositories.NewGORMCartRepository(db),
		users:     repositories.NewGORMUserRepository(db),
		addresses: repositories.NewGORMAddressRepository(db),
		addOns:    repositories.NewGORMAddOnRepository(db),
		events:    &recordingPublisher{},
	}
}

func (e *storeEnv) deps() services.OrderServiceDeps {
	return services.OrderServiceDeps{
		Tx:        e.tx,
		Orders:    e.orders,
		Products:  e.products,
		Cart:      e.cart,
		Users:     e.users,
		Addresses: e.addresses,
		AddOns:    e.addOns,
		Events:    e.events,
		ReadRetry: retry.Config{MaxAttempts: 1},
	}
}

func (e *storeEnv) orderService() *services.OrderService {
	return services.NewOrderService(e.deps())
}

func (e *storeEnv) countOrders(t *testing.T) (orders, items int64) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, e.db.Model(&models.OrderItem{}).Count(&items).Error)
	return orders, items
}

func (e *storeEnv) product(t *testing.T, name string, price int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, SKU: "SKU-" + name, Price: decimal.NewFromInt(price), Stock: 10, Active: true}
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

// customer creates a user; firstPurchase false simulates a returning buyer.
func (e *storeEnv) customer(t *testing.T, username string, firstPurchase bool) services.Session {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hash", FirstPurchase: true}
	require.NoError(t, e.users.Create(ctx, u))
	if !firstPurchase {
		require.NoError(t, e.users.ClearFirstPurchase(ctx, u.ID))
	}
	return services.Session{UserID: u.ID, Username: u.Username, Role: models.RoleCustomer}
}

func (e *storeEnv) admin(t *testing.T) services.Session {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Username: "admin", Email: "admin@example.com", Password: "hash", FirstPurchase: true}
	require.NoError(t, e.users.Create(ctx, u))
	require.NoError(t, e.users.UpdateRole(ctx, u.ID, models.RoleAdmin))
	return services.Session{UserID: u.ID, Username: u.Username, Role: models.RoleAdmin}
}

func deliveryAddress() *services.AddressInput {
	return &services.AddressInput{
		Recipient:  "Ana López",
		Street:     "Av. Insurgentes 100",
		City:       "CDMX",
		State:      "CDMX",
		PostalCode: "06600",
		Phone:      "5512345678",
	}
}

// failingItems makes order item inserts fail.
type failingItems struct {
	repositories.OrderRepository
	err error
}

func (f failingItems) CreateItems(context.Context, []models.OrderItem) error {
	return f.err
}
