package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	items map[string]models.CartItem
	mu    sync.Mutex
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{items: make(map[string]models.CartItem)}
}

func (r *MockCartRepository) ListByUser(_ context.Context, userID string) ([]models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CartItem
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MockCartRepository) AddQuantity(_ context.Context, userID, productID, variantID string, delta int) (*models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, it := range r.items {
		if it.UserID == userID && it.ProductID == productID && it.VariantID == variantID {
			it.Quantity += delta
			it.UpdatedAt = now
			r.items[id] = it
			return &it, nil
		}
	}
	it := models.CartItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  delta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[it.ID] = it
	return &it, nil
}

func (r *MockCartRepository) SetQuantity(_ context.Context, userID, itemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[itemID]
	if !ok || it.UserID != userID {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	it.Quantity = quantity
	it.UpdatedAt = time.Now()
	r.items[itemID] = it
	return nil
}

func (r *MockCartRepository) Delete(_ context.Context, userID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[itemID]
	if !ok || it.UserID != userID {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	delete(r.items, itemID)
	return nil
}

func (r *MockCartRepository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, it := range r.items {
		if it.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}
