package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/validation"
	"tienda/pkg/logger"
	"tienda/pkg/metrics"
	"tienda/pkg/retry"
	"tienda/pkg/saga"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressInput is a shipping address typed at checkout.
type AddressInput struct {
	Recipient  string `json:"recipient" validate:"required,max=150"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,postal_code"`
	Phone      string `json:"phone" validate:"required,phone"`
	Notes      string `json:"notes" validate:"omitempty,max=300"`
}

func (a AddressInput) toModel(userID string) models.Address {
	return models.Address{
		UserID:     userID,
		Recipient:  strings.TrimSpace(a.Recipient),
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Phone:      validation.NormalizePhone(a.Phone),
		Notes:      a.Notes,
	}
}

// LineInput is an explicit checkout line.
type LineInput struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// GuestContact identifies a buyer without an account.
type GuestContact struct {
	Name  string `json:"name" validate:"required,max=150"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

// PlaceOrderInput is everything a checkout submits.
type PlaceOrderInput struct {
	PaymentMethod   models.PaymentMethod  `json:"payment_method" validate:"required,oneof=paypal efectivo"`
	ShippingMethod  models.ShippingMethod `json:"shipping_method" validate:"required,oneof=pickup delivery"`
	ShippingAddress *AddressInput         `json:"shipping_address" validate:"omitempty"`
	SavedAddressID  string                `json:"saved_address_id"`
	Items           []LineInput           `json:"items" validate:"omitempty,dive"`
	AddOnIDs        []string              `json:"add_on_ids"`
	Guest           *GuestContact         `json:"guest" validate:"omitempty"`
	Notes           string                `json:"notes" validate:"omitempty,max=500"`
	IdempotencyKey  string                `json:"idempotency_key" validate:"omitempty,max=64"`
}

// OrderServiceDeps groups the collaborators of OrderService.
type OrderServiceDeps struct {
	Tx        repositories.Transactor
	Orders    repositories.OrderRepository
	Products  repositories.ProductRepository
	Cart      repositories.CartRepository
	Users     repositories.UserRepository
	Addresses repositories.AddressRepository
	AddOns    repositories.AddOnRepository
	Events    EventPublisher
	Metrics   *metrics.Shop
	Log       *logger.Logger
	// Shipping defaults to the standard flat rate when nil.
	Shipping  *ShippingPolicy
	Validate  *validator.Validate
	ReadRetry retry.Config
}

// OrderService handles order placement, reads and status changes.
type OrderService struct {
	tx        repositories.Transactor
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	cart      repositories.CartRepository
	users     repositories.UserRepository
	addresses repositories.AddressRepository
	addOns    repositories.AddOnRepository
	events    EventPublisher
	metrics   *metrics.Shop
	log       *logger.Logger
	shipping  ShippingPolicy
	validate  *validator.Validate
	readRetry retry.Config
}

// NewOrderService creates a new OrderService. Nil optional collaborators get no-op defaults.
func NewOrderService(d OrderServiceDeps) *OrderService {
	if d.Tx == nil {
		d.Tx = repositories.NoopTransactor{}
	}
	if d.Events == nil {
		d.Events = NoopPublisher{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Validate == nil {
		d.Validate = validation.New()
	}
	shipping := NewShippingPolicy(DefaultShippingFlatRate)
	if d.Shipping != nil {
		shipping = *d.Shipping
	}
	if d.ReadRetry.MaxAttempts == 0 {
		d.ReadRetry = retry.ReadDefaults
	}
	return &OrderService{
		tx:        d.Tx,
		orders:    d.Orders,
		products:  d.Products,
		cart:      d.Cart,
		users:     d.Users,
		addresses: d.Addresses,
		addOns:    d.AddOns,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Log,
		shipping:  shipping,
		validate:  d.Validate,
		readRetry: d.ReadRetry,
	}
}

// checkout is the priced, validated form of a PlaceOrderInput.
type checkout struct {
	lines    []models.OrderItem
	addOns   []models.OrderAddOn
	totals   Totals
	services decimal.Decimal
	shipping decimal.Decimal
	address  *models.Address // to be saved on the profile
	order    *models.Order
}

// PlaceOrder prices the checkout and writes the order, its items and add-ons as one unit.
func (s *OrderService) PlaceOrder(ctx context.Context, sess Session, in PlaceOrderInput) (*models.Order, error) {
	if !sess.IsGuest() {
		ctx = s.log.WithUserID(ctx, sess.UserID)
	}
	if err := s.validateInput(sess, in); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		if existing, err := s.orders.GetByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
			return s.replay(sess, existing)
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	co, err := s.price(ctx, sess, in)
	if err != nil {
		return nil, err
	}
	order := co.order
	ctx = s.log.WithOrderID(ctx, order.ID)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return saga.NewOrchestrator(s.log, s.placementSteps(co)...).Run(ctx)
	})
	if err != nil {
		if in.IdempotencyKey != "" && errors.Is(err, ErrOrderInsert) {
			// A concurrent request with the same key won the unique index.
			if existing, lookupErr := s.orders.GetByIdempotencyKey(ctx, in.IdempotencyKey); lookupErr == nil {
				return s.replay(sess, existing)
			}
		}
		s.log.Error(ctx, "order placement failed", err)
		return nil, err
	}

	if !sess.IsGuest() {
		if err := s.cart.Clear(ctx, sess.UserID); err != nil {
			s.log.Warn(ctx, "failed to clear cart after order", err)
		}
		if err := s.users.ClearFirstPurchase(ctx, sess.UserID); err != nil {
			s.log.Warn(ctx, "failed to clear first purchase flag", err)
		}
	}

	s.publish(ctx, EventOrderCreated, newOrderEvent(order))
	s.metrics.OrderPlaced(string(order.PaymentMethod), string(order.ShippingMethod), order.TotalAmount.InexactFloat64())
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
	}), "order placed")
	return order, nil
}

func (s *OrderService) validateInput(sess Session, in PlaceOrderInput) error {
	if err := s.validate.Struct(in); err != nil {
		fields := validation.FieldErrors(err)
		if fields == nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return &ValidationError{Message: "invalid order", Fields: fields}
	}
	if in.ShippingMethod == models.ShippingDelivery && in.SavedAddressID == "" && in.ShippingAddress == nil {
		return invalidField("shipping_address", "is required for delivery")
	}
	if sess.IsGuest() {
		if in.Guest == nil {
			return invalidField("guest", "contact is required for guest checkout")
		}
		if in.SavedAddressID != "" {
			return invalidField("saved_address_id", "requires an account")
		}
		if len(in.Items) == 0 {
			return ErrEmptyCart
		}
	}
	return nil
}

// replay returns the order an earlier request with the same idempotency key created.
func (s *OrderService) replay(sess Session, existing *models.Order) (*models.Order, error) {
	switch {
	case existing.IsGuest() && sess.IsGuest():
	case !sess.IsGuest() && existing.OwnedBy(sess.UserID):
	default:
		return nil, fmt.Errorf("idempotency key already used: %w", ErrConflict)
	}
	return existing, nil
}

func (s *OrderService) price(ctx context.Context, sess Session, in PlaceOrderInput) (*checkout, error) {
	lines, err := s.resolveLines(ctx, sess, in.Items)
	if err != nil {
		return nil, err
	}
	priced := make([]PricedLine, len(lines))
	for i, l := range lines {
		priced[i] = PricedLine{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Resolved: true}
	}
	totals := CartTotals(priced)

	addOns, services, err := s.resolveAddOns(ctx, in.AddOnIDs)
	if err != nil {
		return nil, err
	}

	firstPurchase := false
	if !sess.IsGuest() {
		user, err := s.users.GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load customer: %w", err)
		}
		firstPurchase = user.FirstPurchase
	}
	shipping := s.shipping.Cost(in.ShippingMethod, firstPurchase)

	now := time.Now()
	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	order := &models.Order{
		ID:             uuid.NewString(),
		OrderNumber:    newOrderNumber(now),
		Status:         models.OrderPending,
		PaymentStatus:  models.PaymentPending,
		PaymentMethod:  in.PaymentMethod,
		ShippingMethod: in.ShippingMethod,
		Subtotal:       totals.Subtotal,
		ServicesAmount: services,
		TaxAmount:      decimal.Zero,
		ShippingAmount: shipping,
		DiscountAmount: decimal.Zero,
		TotalAmount:    totals.Subtotal.Add(services).Add(shipping),
		Notes:          strings.TrimSpace(in.Notes),
		IdempotencyKey: key,
	}
	if sess.IsGuest() {
		order.GuestName = strings.TrimSpace(in.Guest.Name)
		order.GuestEmail = strings.ToLower(strings.TrimSpace(in.Guest.Email))
		order.GuestPhone = validation.NormalizePhone(in.Guest.Phone)
	} else {
		uid := sess.UserID
		order.UserID = &uid
	}

	co := &checkout{totals: totals, services: services, shipping: shipping, order: order}
	if in.ShippingMethod == models.ShippingDelivery {
		if err := s.resolveAddress(ctx, sess, in, co); err != nil {
			return nil, err
		}
	}

	for i := range lines {
		lines[i].OrderID = order.ID
	}
	for i := range addOns {
		addOns[i].OrderID = order.ID
	}
	co.lines = lines
	co.addOns = addOns
	order.Items = lines
	order.AddOns = addOns
	return co, nil
}

// resolveLines snapshots the explicit lines, or the user's cart when none were sent.
func (s *OrderService) resolveLines(ctx context.Context, sess Session, explicit []LineInput) ([]models.OrderItem, error) {
	if len(explicit) == 0 {
		if sess.IsGuest() {
			return nil, ErrEmptyCart
		}
		cartItems, err := s.cart.ListByUser(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
		for _, it := range cartItems {
			explicit = append(explicit, LineInput{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
		}
		if len(explicit) == 0 {
			return nil, ErrEmptyCart
		}
		return s.snapshotLines(ctx, explicit, true)
	}
	return s.snapshotLines(ctx, explicit, false)
}

func (s *OrderService) snapshotLines(ctx context.Context, in []LineInput, fromCart bool) ([]models.OrderItem, error) {
	ids := make([]string, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	lines := make([]models.OrderItem, 0, len(in))
	for _, l := range in {
		p, ok := products[l.ProductID]
		if !ok || !p.Active {
			if fromCart {
				s.log.Warn(s.log.WithField(ctx, "product_id", l.ProductID), "dropping unavailable cart line", nil)
				continue
			}
			return nil, invalidField("items", fmt.Sprintf("product %s is not available", l.ProductID))
		}
		lines = append(lines, models.OrderItem{
			ID:           uuid.NewString(),
			ProductID:    p.ID,
			VariantID:    l.VariantID,
			Quantity:     l.Quantity,
			UnitPrice:    p.Price,
			TotalPrice:   p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
			ProductName:  p.Name,
			ProductSKU:   p.SKU,
			ProductImage: p.ImageURL,
		})
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return lines, nil
}

func (s *OrderService) resolveAddOns(ctx context.Context, ids []string) ([]models.OrderAddOn, decimal.Decimal, error) {
	total := decimal.Zero
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, total, nil
	}
	found, err := s.addOns.GetByIDs(ctx, unique)
	if err != nil {
		return nil, total, fmt.Errorf("failed to load add-on services: %w", err)
	}
	byID := make(map[string]models.AddOnService, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	out := make([]models.OrderAddOn, 0, len(unique))
	for _, id := range unique {
		a, ok := byID[id]
		if !ok || !a.Active {
			return nil, total, invalidField("add_on_ids", fmt.Sprintf("service %s is not available", id))
		}
		out = append(out, models.OrderAddOn{ID: uuid.NewString(), AddOnID: a.ID, Name: a.Name, Price: a.Price})
		total = total.Add(a.Price)
	}
	return out, total, nil
}

func (s *OrderService) resolveAddress(ctx context.Context, sess Session, in PlaceOrderInput, co *checkout) error {
	if in.SavedAddressID != "" {
		saved, err := s.addresses.GetByID(ctx, sess.UserID, in.SavedAddressID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return invalidField("saved_address_id", "not found")
			}
			return fmt.Errorf("failed to load address: %w", err)
		}
		id := saved.ID
		co.order.ShippingAddressID = &id
		co.order.ShippingAddress = saved.Snapshot()
		return nil
	}

	addr := in.ShippingAddress.toModel(sess.UserID)
	co.order.ShippingAddress = addr.Snapshot()
	if !sess.IsGuest() {
		addr.ID = uuid.NewString()
		co.address = &addr
	}
	return nil
}

func (s *OrderService) placementSteps(co *checkout) []saga.Step {
	order := co.order
	var steps []saga.Step

	if co.address != nil {
		addr := co.address
		saved := false
		steps = append(steps, saga.Func{
			StepName: "capture_address",
			Do: func(ctx context.Context) error {
				err := s.tx.Savepoint(ctx, "order_address", func(ctx context.Context) error {
					return s.addresses.Create(ctx, addr)
				})
				if err != nil {
					// The order keeps its inline snapshot; losing the profile copy is acceptable.
					s.log.Warn(ctx, "failed to save shipping address to profile", err)
					return nil
				}
				saved = true
				id := addr.ID
				order.ShippingAddressID = &id
				return nil
			},
			Undo: func(ctx context.Context) error {
				if !saved || repositories.InTransaction(ctx) {
					return nil
				}
				return s.addresses.Delete(ctx, addr.UserID, addr.ID)
			},
		})
	}

	steps = append(steps,
		saga.Func{
			StepName: "insert_order",
			Do: func(ctx context.Context) error {
				if err := s.orders.Create(ctx, order); err != nil {
					return fmt.Errorf("%w: %v", ErrOrderInsert, err)
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				if repositories.InTransaction(ctx) {
					return nil
				}
				return s.orders.Delete(ctx, order.ID)
			},
		},
		saga.Func{
			StepName: "insert_items",
			Do: func(ctx context.Context) error {
				if err := s.orders.CreateItems(ctx, co.lines); err != nil {
					return fmt.Errorf("%w: %v", ErrItemsInsert, err)
				}
				return nil
			},
		},
		saga.Func{
			StepName: "insert_add_ons",
			Do: func(ctx context.Context) error {
				if err := s.orders.CreateAddOns(ctx, co.addOns); err != nil {
					return fmt.Errorf("%w: add-on services: %v", ErrItemsInsert, err)
				}
				return nil
			},
		},
	)
	return steps
}

// GetOrder returns an order with items. Customers only see their own orders; guest
// orders are readable by id.
func (s *OrderService) GetOrder(ctx context.Context, sess Session, id string) (*models.Order, error) {
	order, err := retry.Value(ctx, s.readRetry, func(ctx context.Context) (*models.Order, error) {
		return s.orders.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !canView(sess, order) {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return order, nil
}

func canView(sess Session, order *models.Order) bool {
	return sess.IsAdmin() || order.IsGuest() || order.OwnedBy(sess.UserID)
}

// ListMyOrders lists the session user's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, sess Session, filter models.OrderFilter) ([]models.Order, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	filter.UserID = sess.UserID
	return retry.Value(ctx, s.readRetry, func(ctx context.Context) ([]models.Order, error) {
		return s.orders.List(ctx, filter)
	})
}

// AdminListOrders lists every order together with the customer's username and email.
func (s *OrderService) AdminListOrders(ctx context.Context, sess Session, filter models.OrderFilter) ([]models.AdminOrderRow, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.readRetry, func(ctx context.Context) ([]models.AdminOrderRow, error) {
		orders, err := s.orders.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		var userIDs []string
		for _, o := range orders {
			if !o.IsGuest() {
				userIDs = append(userIDs, *o.UserID)
			}
		}
		users, err := s.users.GetByIDs(ctx, dedupe(userIDs))
		if err != nil {
			return nil, err
		}

		rows := make([]models.AdminOrderRow, 0, len(orders))
		for _, o := range orders {
			row := models.AdminOrderRow{Order: o}
			if o.IsGuest() {
				row.CustomerUsername = o.GuestName
				row.CustomerEmail = o.GuestEmail
			} else if u, ok := users[*o.UserID]; ok {
				row.CustomerUsername = u.Username
				row.CustomerEmail = u.Email
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
}

func (s *OrderService) publish(ctx context.Context, routingKey string, ev OrderEvent) {
	if err := s.events.Publish(ctx, routingKey, ev); err != nil {
		s.log.Warn(s.log.WithField(ctx, "routing_key", routingKey), "failed to publish order event", err)
	}
}

// newOrderNumber builds ORD-<unix millis base36>-<6 hex>, upper case.
func newOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return "ORD-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)) + "-" + strings.ToUpper(suffix)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func appendNote(existing, note string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
