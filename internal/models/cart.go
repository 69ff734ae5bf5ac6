package models

import "time"

// CartItem is an unpurchased selection. (user, product, variant) is unique so that
// adding the same product twice increments the quantity in place.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_line"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_line"`
	VariantID string    `json:"variant_id" gorm:"type:varchar(36);not null;default:'';uniqueIndex:idx_cart_line"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
