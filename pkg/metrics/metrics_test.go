package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestShopCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewShop(reg)

	m.OrderPlaced("paypal", "delivery", 400)
	m.OrderPlaced("paypal", "delivery", 250)
	m.Payment("capture", nil)
	m.Payment("capture", errors.New("declined"))
	m.StatusChanged("")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("paypal", "delivery")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentResults.WithLabelValues("capture", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentResults.WithLabelValues("capture", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("unknown")))
}

func TestNilShopIsNoop(t *testing.T) {
	var m *Shop
	assert.NotPanics(t, func() {
		m.OrderPlaced("efectivo", "pickup", 10)
		m.Payment("refund", nil)
		m.StatusChanged("Enviado")
		m.EventConsumed("order.created")
	})

	unregistered := NewShop(nil)
	assert.NotPanics(t, func() { unregistered.OrderPlaced("paypal", "pickup", 1) })
}
