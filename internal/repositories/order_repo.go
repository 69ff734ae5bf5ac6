package repositories

import (
	"context"
	"errors"

	"tienda/internal/models"
)

// ErrConflict is returned when a conditional update finds the row in another state.
var ErrConflict = errors.New("order state changed")

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create writes the order row only. Items and add-ons are written separately.
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateAddOns(ctx context.Context, addOns []models.OrderAddOn) error
	// Delete removes an order with its items and add-ons. Used to compensate a failed checkout.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// Update applies the non-nil fields of upd. It returns ErrConflict when a guard
	// (IfStatus, IfPaymentStatus) does not match the stored row.
	Update(ctx context.Context, id string, upd models.OrderUpdate) error
}
