package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex

	// FailItems, when set, is returned by CreateItems.
	FailItems error
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for _, o := range r.orders {
		if o.OrderNumber == order.OrderNumber || (order.IdempotencyKey != "" && o.IdempotencyKey == order.IdempotencyKey) {
			return fmt.Errorf("failed to create order: duplicate key")
		}
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	stored := *order
	stored.Items = nil
	stored.AddOns = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *MockOrderRepository) CreateItems(_ context.Context, items []models.OrderItem) error {
	if r.FailItems != nil {
		return fmt.Errorf("failed to create order items: %w", r.FailItems)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range items {
		order, ok := r.orders[items[i].OrderID]
		if !ok {
			return fmt.Errorf("order with ID %s: %w", items[i].OrderID, ErrNotFound)
		}
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].CreatedAt = time.Now()
		order.Items = append(order.Items, items[i])
		r.orders[order.ID] = order
	}
	return nil
}

func (r *MockOrderRepository) CreateAddOns(_ context.Context, addOns []models.OrderAddOn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range addOns {
		order, ok := r.orders[addOns[i].OrderID]
		if !ok {
			return fmt.Errorf("order with ID %s: %w", addOns[i].OrderID, ErrNotFound)
		}
		if addOns[i].ID == "" {
			addOns[i].ID = uuid.New().String()
		}
		order.AddOns = append(order.AddOns, addOns[i])
		r.orders[order.ID] = order
	}
	return nil
}

func (r *MockOrderRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return cloneOrder(order), nil
}

func (r *MockOrderRepository) GetByPaymentReference(_ context.Context, reference string) (*models.Order, error) {
	return r.find(func(o models.Order) bool { return reference != "" && o.PaymentReference == reference }, "payment reference "+reference)
}

func (r *MockOrderRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	return r.find(func(o models.Order) bool { return key != "" && o.IdempotencyKey == key }, "idempotency key "+key)
}

func (r *MockOrderRepository) find(match func(models.Order) bool, what string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if match(o) {
			return cloneOrder(o), nil
		}
	}
	return nil, fmt.Errorf("order with %s: %w", what, ErrNotFound)
}

// List returns the orders matching filter, newest first.
func (r *MockOrderRepository) List(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.UserID != "" && !o.OwnedBy(filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.Search != "" {
			haystack := strings.ToLower(o.OrderNumber + " " + o.GuestEmail + " " + o.GuestName)
			if !strings.Contains(haystack, strings.ToLower(filter.Search)) {
				continue
			}
		}
		orderList = append(orderList, *cloneOrder(o))
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(orderList) {
			return []models.Order{}, nil
		}
		orderList = orderList[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(orderList) {
		orderList = orderList[:filter.Limit]
	}
	return orderList, nil
}

// Update applies upd to the stored order.
func (r *MockOrderRepository) Update(_ context.Context, id string, upd models.OrderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s for update: %w", id, ErrNotFound)
	}
	if upd.IfStatus != nil && order.Status != *upd.IfStatus {
		return fmt.Errorf("order %s: %w", id, ErrConflict)
	}
	if upd.IfPaymentStatus != nil && order.PaymentStatus != *upd.IfPaymentStatus {
		return fmt.Errorf("order %s: %w", id, ErrConflict)
	}
	if upd.Status != nil {
		order.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		order.PaymentStatus = *upd.PaymentStatus
	}
	if upd.TrackingNumber != nil {
		order.TrackingNumber = *upd.TrackingNumber
	}
	if upd.Notes != nil {
		order.Notes = *upd.Notes
	}
	if upd.PaymentReference != nil {
		order.PaymentReference = *upd.PaymentReference
	}
	if upd.CaptureID != nil {
		order.CaptureID = *upd.CaptureID
	}
	if upd.PayerEmail != nil {
		order.PayerEmail = *upd.PayerEmail
	}
	if upd.PaidAt != nil {
		t := *upd.PaidAt
		order.PaidAt = &t
	}
	if upd.PaymentCancelledAt != nil {
		t := *upd.PaymentCancelledAt
		order.PaymentCancelledAt = &t
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// Count returns the number of stored orders.
func (r *MockOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func cloneOrder(o models.Order) *models.Order {
	c := o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.AddOns = append([]models.OrderAddOn(nil), o.AddOns...)
	return &c
}
