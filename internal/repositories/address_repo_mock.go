package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
)

// MockAddressRepository is an in-memory implementation of AddressRepository.
type MockAddressRepository struct {
	addresses map[string]models.Address
	mu        sync.RWMutex

	// FailCreate, when set, is returned by Create.
	FailCreate error
}

func NewMockAddressRepository() *MockAddressRepository {
	return &MockAddressRepository{addresses: make(map[string]models.Address)}
}

func (r *MockAddressRepository) ListByUser(_ context.Context, userID string) ([]models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Address
	for _, a := range r.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MockAddressRepository) GetByID(_ context.Context, userID, id string) (*models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("address with ID %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (r *MockAddressRepository) Create(_ context.Context, address *models.Address) error {
	if r.FailCreate != nil {
		return fmt.Errorf("failed to create address: %w", r.FailCreate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	now := time.Now()
	address.CreatedAt = now
	address.UpdatedAt = now
	r.addresses[address.ID] = *address
	return nil
}

func (r *MockAddressRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("address with ID %s: %w", id, ErrNotFound)
	}
	delete(r.addresses, id)
	return nil
}
