package services_test

import (
	"testing"

	"tienda/internal/models"
	"tienda/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(price int64, qty int) services.PricedLine {
	return services.PricedLine{UnitPrice: decimal.NewFromInt(price), Quantity: qty, Resolved: true}
}

func TestCartTotals(t *testing.T) {
	totals := services.CartTotals([]services.PricedLine{line(100, 2), line(50, 1)})

	assert.True(t, decimal.NewFromInt(250).Equal(totals.Subtotal))
	assert.True(t, totals.Subtotal.Equal(totals.Total))
	assert.Equal(t, 3, totals.ItemCount)
}

func TestCartTotalsUnresolvedLineCountsAtZero(t *testing.T) {
	gone := services.PricedLine{ProductID: "deleted", UnitPrice: decimal.NewFromInt(999), Quantity: 4}
	totals := services.CartTotals([]services.PricedLine{line(10, 1), gone})

	assert.True(t, decimal.NewFromInt(10).Equal(totals.Total))
	assert.Equal(t, 5, totals.ItemCount)
}

func TestCartTotalsEmpty(t *testing.T) {
	totals := services.CartTotals(nil)
	assert.True(t, totals.Total.IsZero())
	assert.Zero(t, totals.ItemCount)
}

func TestShippingCost(t *testing.T) {
	cases := []struct {
		name   string
		method models.ShippingMethod
		first  bool
		want   int64
	}{
		{"pickup first purchase", models.ShippingPickup, true, 0},
		{"pickup returning buyer", models.ShippingPickup, false, 0},
		{"delivery first purchase", models.ShippingDelivery, true, 0},
		{"delivery returning buyer", models.ShippingDelivery, false, 150},
	}
	standard := services.NewShippingPolicy(services.DefaultShippingFlatRate)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := standard.Cost(tc.method, tc.first)
			assert.True(t, decimal.NewFromInt(tc.want).Equal(got), "got %s", got)
		})
	}

	custom := services.NewShippingPolicy(decimal.NewFromInt(99))
	assert.True(t, decimal.NewFromInt(99).Equal(custom.Cost(models.ShippingDelivery, false)))
}
