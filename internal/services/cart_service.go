package services

import (
	"context"
	"errors"
	"fmt"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/pkg/logger"

	"github.com/shopspring/decimal"
)

// CartLine is a cart row resolved against the live catalog.
type CartLine struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Available   bool            `json:"available"`
}

// CartView is the cart with its totals.
type CartView struct {
	Items []CartLine `json:"items"`
	Totals
}

// CartService handles the shopping cart of authenticated users.
type CartService struct {
	cart     repositories.CartRepository
	products repositories.ProductRepository
	log      *logger.Logger
}

func NewCartService(cart repositories.CartRepository, products repositories.ProductRepository, log *logger.Logger) *CartService {
	if log == nil {
		log = logger.Nop()
	}
	return &CartService{cart: cart, products: products, log: log}
}

// GetCart returns the cart priced with current product prices. Lines whose product
// disappeared stay visible, priced at 0.
func (s *CartService) GetCart(ctx context.Context, sess Session) (*CartView, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	items, err := s.cart.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: make([]CartLine, 0, len(items))}
	priced := make([]PricedLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		line := CartLine{ID: it.ID, ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: decimal.Zero, LineTotal: decimal.Zero}
		if ok {
			line.UnitPrice = p.Price
			line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			line.ProductName = p.Name
			line.ImageURL = p.ImageURL
			line.Available = p.Active
		}
		view.Items = append(view.Items, line)
		priced = append(priced, PricedLine{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: line.UnitPrice, Resolved: ok})
	}
	view.Totals = CartTotals(priced)
	return view, nil
}

// AddItem adds quantity units of a product, incrementing an existing line atomically.
func (s *CartService) AddItem(ctx context.Context, sess Session, productID, variantID string, quantity int) (*models.CartItem, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, invalidField("quantity", "must be at least 1")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalidField("product_id", "product not found")
		}
		return nil, err
	}
	if !p.Active {
		return nil, invalidField("product_id", "product is not available")
	}
	item, err := s.cart.AddQuantity(ctx, sess.UserID, productID, variantID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	s.log.Debug(s.log.WithFields(ctx, map[string]any{"user_id": sess.UserID, "product_id": productID, "quantity": item.Quantity}), "cart line updated")
	return item, nil
}

// UpdateQuantity sets the quantity of a line. Zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sess Session, itemID string, quantity int) error {
	if err := sess.requireUser(); err != nil {
		return err
	}
	switch {
	case quantity < 0:
		return invalidField("quantity", "must not be negative")
	case quantity == 0:
		return s.cart.Delete(ctx, sess.UserID, itemID)
	default:
		return s.cart.SetQuantity(ctx, sess.UserID, itemID, quantity)
	}
}

func (s *CartService) RemoveItem(ctx context.Context, sess Session, itemID string) error {
	if err := sess.requireUser(); err != nil {
		return err
	}
	return s.cart.Delete(ctx, sess.UserID, itemID)
}

func (s *CartService) Clear(ctx context.Context, sess Session) error {
	if err := sess.requireUser(); err != nil {
		return err
	}
	return s.cart.Clear(ctx, sess.UserID)
}
