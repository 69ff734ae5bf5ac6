package services

import (
	"github.com/shopspring/decimal"

	"tienda/internal/models"
)

// DefaultShippingFlatRate is charged for delivery when no free-shipping rule applies.
var DefaultShippingFlatRate = decimal.NewFromInt(150)

// PricedLine is one cart or checkout line resolved against the live price.
// Resolved is false when the product no longer exists.
type PricedLine struct {
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
	Resolved  bool
}

// Totals summarises a set of lines. There is no tax, so Total equals Subtotal.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartTotals sums the lines. Unresolved lines are priced at 0 but still counted.
func CartTotals(lines []PricedLine) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		count += l.Quantity
		if !l.Resolved {
			continue
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return Totals{Subtotal: subtotal, ItemCount: count, Total: subtotal}
}

// ShippingPolicy prices delivery.
type ShippingPolicy struct {
	FlatRate decimal.Decimal
}

func NewShippingPolicy(flatRate decimal.Decimal) ShippingPolicy {
	return ShippingPolicy{FlatRate: flatRate}
}

// Cost is 0 for pickup, 0 for a first purchase and the flat rate otherwise.
func (p ShippingPolicy) Cost(method models.ShippingMethod, firstPurchase bool) decimal.Decimal {
	if method == models.ShippingPickup || firstPurchase {
		return decimal.Zero
	}
	return p.FlatRate
}
