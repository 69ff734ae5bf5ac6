package services

import (
	"context"
	"time"

	"tienda/internal/models"
)

// Routing keys of the order events.
const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderRefunded      = "order.refunded"
	EventOrderStatusChanged = "order.status_changed"
)

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// OrderEvent is the body of every order.* message.
type OrderEvent struct {
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	UserID        string               `json:"user_id,omitempty"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Total         string               `json:"total"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func newOrderEvent(o *models.Order) OrderEvent {
	ev := OrderEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		Total:         o.TotalAmount.StringFixed(2),
		OccurredAt:    time.Now().UTC(),
	}
	if !o.IsGuest() {
		ev.UserID = *o.UserID
	}
	return ev
}
