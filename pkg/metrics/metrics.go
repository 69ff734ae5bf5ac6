package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Shop records order and payment counters. A nil *Shop is a valid no-op.
type Shop struct {
	ordersPlaced      *prometheus.CounterVec
	orderAmount       *prometheus.HistogramVec
	statusTransitions *prometheus.CounterVec
	paymentResults    *prometheus.CounterVec
	eventsConsumed    *prometheus.CounterVec
}

// NewShop registers the shop metrics on the provided registerer.
func NewShop(reg prometheus.Registerer) *Shop {
	if reg == nil {
		return &Shop{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tienda_orders_placed_total",
		Help: "Orders placed, by payment and shipping method.",
	}, []string{"payment_method", "shipping_method"})
	orderAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tienda_order_total_amount",
		Help:    "Order total amount in store currency.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"payment_method"})
	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tienda_order_status_transitions_total",
		Help: "Order status transitions, by target status.",
	}, []string{"status"})
	paymentResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tienda_payment_operations_total",
		Help: "Payment provider operations, by operation and result.",
	}, []string{"operation", "result"})
	eventsConsumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tienda_order_events_consumed_total",
		Help: "Order events consumed from the broker, by routing key.",
	}, []string{"routing_key"})
	reg.MustRegister(ordersPlaced, orderAmount, statusTransitions, paymentResults, eventsConsumed)
	return &Shop{
		ordersPlaced:      ordersPlaced,
		orderAmount:       orderAmount,
		statusTransitions: statusTransitions,
		paymentResults:    paymentResults,
		eventsConsumed:    eventsConsumed,
	}
}

func (s *Shop) OrderPlaced(paymentMethod, shippingMethod string, total float64) {
	if s == nil || s.ordersPlaced == nil {
		return
	}
	s.ordersPlaced.WithLabelValues(label(paymentMethod), label(shippingMethod)).Inc()
	s.orderAmount.WithLabelValues(label(paymentMethod)).Observe(total)
}

func (s *Shop) StatusChanged(status string) {
	if s == nil || s.statusTransitions == nil {
		return
	}
	s.statusTransitions.WithLabelValues(label(status)).Inc()
}

func (s *Shop) Payment(operation string, err error) {
	if s == nil || s.paymentResults == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	s.paymentResults.WithLabelValues(label(operation), result).Inc()
}

func (s *Shop) EventConsumed(routingKey string) {
	if s == nil || s.eventsConsumed == nil {
		return
	}
	s.eventsConsumed.WithLabelValues(label(routingKey)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
