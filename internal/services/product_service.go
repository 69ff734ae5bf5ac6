package services

import (
	"context"
	"strings"

	"tienda/internal/models"
	"tienda/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts lists products. The public catalog only sees active ones.
func (s *ProductService) GetAllProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.GetAll(ctx, filter)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, sess Session, product *models.Product) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, sess Session, product *models.Product) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, product)
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, sess Session, id string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func checkProduct(p *models.Product) error {
	if p.Price.IsNegative() {
		return invalidField("price", "must not be negative")
	}
	if p.Stock < 0 {
		return invalidField("stock", "must not be negative")
	}
	return nil
}
