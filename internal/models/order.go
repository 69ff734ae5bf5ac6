package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one purchased line. Product data is copied at purchase time.
type OrderItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID    string          `json:"product_id" gorm:"type:varchar(36);not null"`
	VariantID    string          `json:"variant_id,omitempty" gorm:"type:varchar(36)"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	ProductName  string          `json:"product_name"`
	ProductSKU   string          `json:"product_sku"`
	ProductImage string          `json:"product_image"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderAddOn is the snapshot of an add-on service chosen for an order.
type OrderAddOn struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	AddOnID   string          `json:"add_on_id" gorm:"type:varchar(36);not null"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order represents a customer order. Amounts are fixed at creation; afterwards only
// status, payment and tracking fields change.
type Order struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber    string         `json:"order_number" gorm:"uniqueIndex;type:varchar(40);not null"`
	UserID         *string        `json:"user_id,omitempty" gorm:"type:varchar(36);index"`
	GuestName      string         `json:"guest_name,omitempty"`
	GuestEmail     string         `json:"guest_email,omitempty"`
	GuestPhone     string         `json:"guest_phone,omitempty"`
	Status         OrderStatus    `json:"status" gorm:"type:varchar(20);index;not null"`
	PaymentStatus  PaymentStatus  `json:"payment_status" gorm:"type:varchar(20);index;not null"`
	PaymentMethod  PaymentMethod  `json:"payment_method" gorm:"type:varchar(20);not null"`
	ShippingMethod ShippingMethod `json:"shipping_method" gorm:"type:varchar(20);not null"`

	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	ServicesAmount decimal.Decimal `json:"services_amount" gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	ShippingAmount decimal.Decimal `json:"shipping_amount" gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`

	ShippingAddressID *string         `json:"shipping_address_id,omitempty" gorm:"type:varchar(36)"`
	ShippingAddress   AddressSnapshot `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	Notes             string          `json:"notes,omitempty"`

	IdempotencyKey     string     `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	PaymentReference   string     `json:"payment_reference,omitempty" gorm:"type:varchar(64);index"`
	CaptureID          string     `json:"capture_id,omitempty" gorm:"type:varchar(64)"`
	PayerEmail         string     `json:"payer_email,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	PaymentCancelledAt *time.Time `json:"payment_cancelled_at,omitempty"`

	Items     []OrderItem  `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	AddOns    []OrderAddOn `json:"add_ons,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil || *o.UserID == ""
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return !o.IsGuest() && *o.UserID == userID
}

// AdminOrderRow is an order joined with its customer for back-office listings.
type AdminOrderRow struct {
	Order
	CustomerUsername string `json:"customer_username"`
	CustomerEmail    string `json:"customer_email"`
}

// OrderUpdate carries the mutable fields of an order. Nil fields are left untouched.
// IfStatus / IfPaymentStatus make the write conditional on the current state.
type OrderUpdate struct {
	Status             *OrderStatus
	PaymentStatus      *PaymentStatus
	TrackingNumber     *string
	Notes              *string
	PaymentReference   *string
	CaptureID          *string
	PayerEmail         *string
	PaidAt             *time.Time
	PaymentCancelledAt *time.Time

	IfStatus        *OrderStatus
	IfPaymentStatus *PaymentStatus
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID        string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Search        string
	Limit         int
	Offset        int
}
