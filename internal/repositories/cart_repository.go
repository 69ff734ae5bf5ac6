package repositories

import (
	"context"
	"fmt"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository defines data access for cart lines.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	// AddQuantity inserts the line or atomically increments its quantity by delta.
	AddQuantity(ctx context.Context, userID, productID, variantID string, delta int) (*models.CartItem, error)
	SetQuantity(ctx context.Context, userID, itemID string, quantity int) error
	Delete(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list cart of user %s: %w", userID, err)
	}
	return items, nil
}

// AddQuantity relies on the (user_id, product_id, variant_id) unique index so that two
// concurrent adds for the same product end up as one row holding both quantities.
func (r *GORMCartRepository) AddQuantity(ctx context.Context, userID, productID, variantID string, delta int) (*models.CartItem, error) {
	now := time.Now()
	item := models.CartItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  delta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db := conn(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "variant_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", delta),
			"updated_at": now,
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add product %s to cart: %w", productID, err)
	}

	var stored models.CartItem
	err = db.Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, productID, variantID).First(&stored).Error
	if err != nil {
		return nil, notFound(err, "cart line for product %s", productID)
	}
	return &stored, nil
}

func (r *GORMCartRepository) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	res := conn(ctx, r.db).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

func (r *GORMCartRepository) Delete(ctx context.Context, userID, itemID string) error {
	res := conn(ctx, r.db).Where("id = ? AND user_id = ?", itemID, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

func (r *GORMCartRepository) Clear(ctx context.Context, userID string) error {
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart of user %s: %w", userID, err)
	}
	return nil
}
