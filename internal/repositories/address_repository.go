package repositories

import (
	"context"
	"fmt"

	"tienda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddressRepository defines data access for saved shipping addresses.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
	GetByID(ctx context.Context, userID, id string) (*models.Address, error)
	Create(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, userID, id string) error
}

// GORMAddressRepository is a GORM implementation of AddressRepository.
type GORMAddressRepository struct {
	db *gorm.DB
}

func NewGORMAddressRepository(db *gorm.DB) *GORMAddressRepository {
	return &GORMAddressRepository{db: db}
}

func (r *GORMAddressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	var addresses []models.Address
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at desc").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses of user %s: %w", userID, err)
	}
	return addresses, nil
}

// GetByID only finds addresses owned by userID.
func (r *GORMAddressRepository) GetByID(ctx context.Context, userID, id string) (*models.Address, error) {
	var address models.Address
	if err := conn(ctx, r.db).First(&address, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err, "address with ID %s", id)
	}
	return &address, nil
}

func (r *GORMAddressRepository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(address).Error; err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *GORMAddressRepository) Delete(ctx context.Context, userID, id string) error {
	res := conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete address %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("address with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
