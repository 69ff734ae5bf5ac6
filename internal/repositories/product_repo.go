package repositories

import (
	"context"

	"tienda/internal/models"
)

// ProductFilter narrows the catalog listing.
type ProductFilter struct {
	CategoryID string
	BrandID    string
	Search     string
	ActiveOnly bool
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
