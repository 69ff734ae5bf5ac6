package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/pkg/logger"
	"tienda/pkg/metrics"
	"tienda/pkg/paypal"
	"tienda/pkg/saga"
)

const (
	captureLockTTL   = 30 * time.Second
	maxCaptureWrites = 3
)

// PaymentGateway is the subset of the PayPal client the checkout uses.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest, requestID string) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID, requestID string) (*paypal.Order, error)
	RefundCapture(ctx context.Context, captureID string, amount *paypal.Money, requestID string) (*paypal.Refund, error)
}

// Locker grants short lived exclusive keys.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

// PaymentServiceDeps groups the collaborators of PaymentService. Gateway is optional.
// Locker defaults to an in-process lock, enough for a single instance.
type PaymentServiceDeps struct {
	Orders    repositories.OrderRepository
	Gateway   PaymentGateway
	Locker    Locker
	Events    EventPublisher
	Metrics   *metrics.Shop
	Log       *logger.Logger
	Currency  string
	ReturnURL string
	CancelURL string
	BrandName string
}

// PaymentService drives PayPal checkouts and the payment status of orders.
type PaymentService struct {
	orders    repositories.OrderRepository
	gateway   PaymentGateway
	locker    Locker
	events    EventPublisher
	metrics   *metrics.Shop
	log       *logger.Logger
	currency  string
	returnURL string
	cancelURL string
	brandName string
}

func NewPaymentService(d PaymentServiceDeps) *PaymentService {
	if d.Events == nil {
		d.Events = NoopPublisher{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Currency == "" {
		d.Currency = "MXN"
	}
	if d.Locker == nil {
		d.Locker = newLocalLocker()
	}
	return &PaymentService{
		orders:    d.Orders,
		gateway:   d.Gateway,
		locker:    d.Locker,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Log,
		currency:  d.Currency,
		returnURL: d.ReturnURL,
		cancelURL: d.CancelURL,
		brandName: d.BrandName,
	}
}

// CheckoutSession is what the buyer needs to approve a PayPal payment.
type CheckoutSession struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	ApprovalURL     string `json:"approval_url"`
}

// StartPayPalCheckout registers the order with PayPal and stores the provider id.
func (s *PaymentService) StartPayPalCheckout(ctx context.Context, sess Session, orderID string) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	ctx = s.log.WithOrderID(ctx, orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(sess, order) {
		return nil, fmt.Errorf("order with ID %s: %w", orderID, ErrNotFound)
	}
	if order.PaymentMethod != models.PaymentPayPal {
		return nil, invalidField("payment_method", "order is not paid with paypal")
	}
	if order.Status == models.OrderCancelled || !order.PaymentStatus.CanTransitionTo(models.PaymentPaid) {
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
	}

	var created *paypal.Order
	steps := []saga.Step{
		saga.Func{
			StepName: "create_provider_order",
			Do: func(ctx context.Context) error {
				var err error
				created, err = s.gateway.CreateOrder(ctx, s.checkoutRequest(order), "create-"+order.IdempotencyKey)
				s.metrics.Payment("create", err)
				if err != nil {
					return fmt.Errorf("create paypal order: %w", err)
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				return s.markFailed(ctx, order, "no se pudo registrar el pago")
			},
		},
		saga.Func{
			StepName: "store_payment_reference",
			Do: func(ctx context.Context) error {
				ref := created.ID
				return s.orders.Update(ctx, order.ID, models.OrderUpdate{PaymentReference: &ref})
			},
		},
	}
	if err := saga.NewOrchestrator(s.log, steps...).Run(ctx); err != nil {
		s.log.Error(ctx, "paypal checkout failed", err)
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "payment_reference", created.ID), "paypal checkout started")
	return &CheckoutSession{OrderID: order.ID, ProviderOrderID: created.ID, ApprovalURL: created.ApprovalURL()}, nil
}

func (s *PaymentService) checkoutRequest(order *models.Order) paypal.CreateOrderRequest {
	items := make([]paypal.Item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, paypal.Item{
			Name:       it.ProductName,
			Quantity:   strconv.Itoa(it.Quantity),
			UnitAmount: paypal.NewMoney(s.currency, it.UnitPrice),
			SKU:        it.ProductSKU,
		})
	}
	itemTotal := paypal.NewMoney(s.currency, order.Subtotal)
	shipping := paypal.NewMoney(s.currency, order.ShippingAmount)
	handling := paypal.NewMoney(s.currency, order.ServicesAmount)
	return paypal.CreateOrderRequest{
		Intent: paypal.IntentCapture,
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: order.ID,
			CustomID:    order.OrderNumber,
			InvoiceID:   order.OrderNumber,
			Amount: &paypal.Amount{
				CurrencyCode: s.currency,
				Value:        order.TotalAmount.StringFixed(2),
				Breakdown: &paypal.Breakdown{
					ItemTotal: &itemTotal,
					Shipping:  &shipping,
					Handling:  &handling,
				},
			},
			Items: items,
		}},
		ApplicationContext: &paypal.ApplicationContext{
			BrandName:          s.brandName,
			ReturnURL:          s.returnURL,
			CancelURL:          s.cancelURL,
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
		},
	}
}

// Capture collects the funds of an approved PayPal order and marks the order paid.
// Capturing an order that is already Pagado returns it without calling PayPal.
func (s *PaymentService) Capture(ctx context.Context, providerOrderID string) (*models.Order, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	if providerOrderID == "" {
		return nil, invalidField("provider_order_id", "is required")
	}
	ctx = s.log.WithField(ctx, "payment_reference", providerOrderID)

	order, err := s.orders.GetByPaymentReference(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentPaid {
		return order, nil
	}
	if err := capturable(order); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another request may have finished while we waited for the lock.
	if order, err = s.orders.GetByID(ctx, order.ID); err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentPaid {
		return order, nil
	}
	ctx = s.log.WithOrderID(ctx, order.ID)

	result, err := s.gateway.CaptureOrder(ctx, providerOrderID, "capture-"+order.IdempotencyKey)
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) && apiErr.HasIssue("ORDER_ALREADY_CAPTURED") {
		result, err = s.gateway.GetOrder(ctx, providerOrderID)
	}
	if err == nil && result.Status != paypal.StatusCompleted {
		err = fmt.Errorf("capture finished with status %s", result.Status)
	}
	var capture *paypal.Capture
	if err == nil {
		if capture = result.FirstCapture(); capture == nil {
			err = errors.New("capture response has no capture")
		}
	}
	s.metrics.Payment("capture", err)
	if err != nil {
		if markErr := s.markFailed(ctx, order, "captura rechazada"); markErr != nil {
			s.log.Error(ctx, "failed to mark payment as failed", markErr)
		} else {
			s.publishPayment(ctx, EventOrderPaymentFailed, order.ID, "capture failed")
		}
		return nil, fmt.Errorf("capture payment %s: %w", providerOrderID, err)
	}

	updated, written, err := s.storeCapture(ctx, order, result, capture)
	if err != nil {
		s.log.Error(s.log.WithField(ctx, "capture_id", capture.ID), "captured payment could not be stored", err)
		return nil, err
	}
	if written {
		s.publishPayment(ctx, EventOrderPaid, order.ID, "")
		s.log.Info(s.log.WithField(ctx, "capture_id", capture.ID), "payment captured")
	}
	return updated, nil
}

// storeCapture records a completed capture as Pagado. When the payment changed in the
// meantime (a buyer cancel from another instance) the order is re-read and the write
// retried from its current state, since the provider already holds the money. written
// is false when another request stored the payment first.
func (s *PaymentService) storeCapture(ctx context.Context, order *models.Order, result *paypal.Order, capture *paypal.Capture) (*models.Order, bool, error) {
	for attempt := 0; attempt < maxCaptureWrites; attempt++ {
		if order.PaymentStatus == models.PaymentPaid {
			return order, false, nil
		}
		if !order.PaymentStatus.CanTransitionTo(models.PaymentPaid) {
			return nil, false, fmt.Errorf("%w: capture %s taken but payment is %s", ErrConflict, capture.ID, order.PaymentStatus)
		}

		paid := models.PaymentPaid
		current := order.PaymentStatus
		now := time.Now()
		upd := models.OrderUpdate{
			PaymentStatus:   &paid,
			CaptureID:       &capture.ID,
			PaidAt:          &now,
			IfPaymentStatus: &current,
		}
		if result.Payer != nil && result.Payer.EmailAddress != "" {
			upd.PayerEmail = &result.Payer.EmailAddress
		}
		if order.Status == models.OrderPending {
			pending := models.OrderPending
			processing := models.OrderProcessing
			upd.Status = &processing
			upd.IfStatus = &pending
		}

		err := s.orders.Update(ctx, order.ID, upd)
		if err == nil {
			updated, err := s.orders.GetByID(ctx, order.ID)
			return updated, true, err
		}
		if !errors.Is(err, ErrConflict) {
			return nil, false, fmt.Errorf("failed to store capture: %w", err)
		}
		if order, err = s.orders.GetByID(ctx, order.ID); err != nil {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("failed to store capture %s: %w", capture.ID, ErrConflict)
}

// lock takes the capture key of a provider order. Captures and buyer cancels of the
// same checkout never run at the same time.
func (s *PaymentService) lock(ctx context.Context, providerOrderID string) (func(), error) {
	release, ok, err := s.locker.Acquire(ctx, "capture:"+providerOrderID, captureLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock capture: %w", err)
	}
	if !ok {
		return nil, ErrPaymentInProgress
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn(ctx, "failed to release capture lock", err)
		}
	}, nil
}

func capturable(order *models.Order) error {
	if order.Status == models.OrderCancelled {
		return fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}
	if !order.PaymentStatus.CanTransitionTo(models.PaymentPaid) {
		return fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
	}
	return nil
}

// Cancel records that the buyer abandoned the PayPal approval. The order status is
// not changed.
func (s *PaymentService) Cancel(ctx context.Context, providerOrderID, reason string) (*models.Order, error) {
	if providerOrderID == "" {
		return nil, invalidField("provider_order_id", "is required")
	}
	ctx = s.log.WithField(ctx, "payment_reference", providerOrderID)

	order, err := s.orders.GetByPaymentReference(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	release, err := s.lock(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	defer release()
	if order, err = s.orders.GetByID(ctx, order.ID); err != nil {
		return nil, err
	}

	switch order.PaymentStatus {
	case models.PaymentFailed:
		return order, nil
	case models.PaymentPending:
	default:
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
	}

	if reason == "" {
		reason = "cancelado por el comprador"
	}
	if err := s.markFailed(ctx, order, reason); err != nil {
		return nil, err
	}
	s.publishPayment(ctx, EventOrderPaymentFailed, order.ID, reason)
	return s.orders.GetByID(ctx, order.ID)
}

// MarkPaid records a cash payment.
func (s *PaymentService) MarkPaid(ctx context.Context, sess Session, orderID string) (*models.Order, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentCash {
		return nil, invalidField("payment_method", "only cash orders can be marked as paid")
	}
	if err := capturable(order); err != nil {
		return nil, err
	}
	paid := models.PaymentPaid
	now := time.Now()
	err = s.orders.Update(ctx, orderID, models.OrderUpdate{PaymentStatus: &paid, PaidAt: &now, IfPaymentStatus: &order.PaymentStatus})
	if err != nil {
		return nil, err
	}
	s.publishPayment(ctx, EventOrderPaid, orderID, "")
	return s.orders.GetByID(ctx, orderID)
}

// Refund returns the full capture to the buyer.
func (s *PaymentService) Refund(ctx context.Context, sess Session, orderID string) (*models.Order, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	ctx = s.log.WithOrderID(ctx, orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.CanTransitionTo(models.PaymentRefunded) {
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
	}
	if order.PaymentMethod == models.PaymentPayPal {
		if s.gateway == nil {
			return nil, ErrPaymentUnavailable
		}
		if order.CaptureID == "" {
			return nil, invalid("order has no capture to refund")
		}
		_, err := s.gateway.RefundCapture(ctx, order.CaptureID, nil, "refund-"+order.IdempotencyKey)
		s.metrics.Payment("refund", err)
		if err != nil {
			return nil, fmt.Errorf("refund capture %s: %w", order.CaptureID, err)
		}
	}

	refunded := models.PaymentRefunded
	paid := models.PaymentPaid
	if err := s.orders.Update(ctx, orderID, models.OrderUpdate{PaymentStatus: &refunded, IfPaymentStatus: &paid}); err != nil {
		return nil, err
	}
	s.publishPayment(ctx, EventOrderRefunded, orderID, "")
	s.log.Info(ctx, "payment refunded")
	return s.orders.GetByID(ctx, orderID)
}

func (s *PaymentService) markFailed(ctx context.Context, order *models.Order, reason string) error {
	failed := models.PaymentFailed
	now := time.Now()
	notes := appendNote(order.Notes, "Pago cancelado: "+reason)
	current := order.PaymentStatus
	err := s.orders.Update(ctx, order.ID, models.OrderUpdate{
		PaymentStatus:      &failed,
		PaymentCancelledAt: &now,
		Notes:              &notes,
		IfPaymentStatus:    &current,
	})
	if err != nil {
		return fmt.Errorf("failed to mark payment as failed: %w", err)
	}
	order.PaymentStatus = failed
	order.Notes = notes
	order.PaymentCancelledAt = &now
	return nil
}

func (s *PaymentService) publishPayment(ctx context.Context, routingKey, orderID, reason string) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.log.Warn(ctx, "failed to load order for event", err)
		return
	}
	ev := newOrderEvent(order)
	ev.Reason = reason
	if err := s.events.Publish(ctx, routingKey, ev); err != nil {
		s.log.Warn(s.log.WithField(ctx, "routing_key", routingKey), "failed to publish payment event", err)
	}
}
