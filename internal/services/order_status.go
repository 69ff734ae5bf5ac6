package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tienda/internal/models"
)

// UpdateStatus moves an order to status. Only transitions in the status table are
// allowed; a tracking number may accompany a move to Enviado or be changed while the
// order is already Enviado.
func (s *OrderService) UpdateStatus(ctx context.Context, sess Session, id string, status models.OrderStatus, tracking *string) (*models.Order, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidField("status", fmt.Sprintf("unknown status %q", status))
	}
	if tracking != nil && status != models.OrderShipped {
		return nil, invalidField("tracking_number", "can only be set on shipped orders")
	}
	ctx = s.log.WithOrderID(ctx, id)

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current := order.Status
	if current.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, current)
	}
	if status == current {
		if status != models.OrderShipped || tracking == nil {
			return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current)
		}
	} else if !current.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	upd := models.OrderUpdate{Status: &status, IfStatus: &current}
	if tracking != nil {
		t := strings.TrimSpace(*tracking)
		upd.TrackingNumber = &t
	}
	if err := s.orders.Update(ctx, id, upd); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: order changed while updating", ErrInvalidTransition)
		}
		return nil, err
	}

	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status != current {
		s.metrics.StatusChanged(string(status))
	}
	s.publish(ctx, EventOrderStatusChanged, newOrderEvent(updated))
	s.log.Info(s.log.WithFields(ctx, map[string]any{"from": current, "to": status}), "order status updated")
	return updated, nil
}

// CancelOrder cancels an order on behalf of its owner or an admin. Customers may only
// cancel orders that are still Pendiente. The payment status is left as is.
func (s *OrderService) CancelOrder(ctx context.Context, sess Session, id, reason string) (*models.Order, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	ctx = s.log.WithOrderID(ctx, id)

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin() {
		if !order.OwnedBy(sess.UserID) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		if order.Status != models.OrderPending {
			return nil, fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
		}
	}

	current := order.Status
	if current.Terminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current)
	}
	if !current.CanTransitionTo(models.OrderCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, models.OrderCancelled)
	}

	note := "Cancelado"
	if r := strings.TrimSpace(reason); r != "" {
		note += ": " + r
	}
	notes := appendNote(order.Notes, note)
	cancelled := models.OrderCancelled
	err = s.orders.Update(ctx, id, models.OrderUpdate{Status: &cancelled, Notes: &notes, IfStatus: &current})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: order changed while cancelling", ErrInvalidTransition)
		}
		return nil, err
	}

	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.StatusChanged(string(models.OrderCancelled))
	ev := newOrderEvent(updated)
	ev.Reason = reason
	s.publish(ctx, EventOrderStatusChanged, ev)
	s.log.Info(ctx, "order cancelled")
	return updated, nil
}
