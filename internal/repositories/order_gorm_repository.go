package repositories

import (
	"context"
	"fmt"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Omit("Items", "AddOns").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
	}
	if err := conn(ctx, r.db).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) CreateAddOns(ctx context.Context, addOns []models.OrderAddOn) error {
	if len(addOns) == 0 {
		return nil
	}
	for i := range addOns {
		if addOns[i].ID == "" {
			addOns[i].ID = uuid.New().String()
		}
	}
	if err := conn(ctx, r.db).Create(&addOns).Error; err != nil {
		return fmt.Errorf("failed to create order add-ons: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items of order %s: %w", id, err)
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderAddOn{}).Error; err != nil {
		return fmt.Errorf("failed to delete add-ons of order %s: %w", id, err)
	}
	if err := db.Delete(&models.Order{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	return r.first(ctx, "payment_reference = ?", reference)
}

func (r *GORMOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("AddOns").
		First(&order, query, arg).Error
	if err != nil {
		return nil, notFound(err, "order where %s %s", query, arg)
	}
	return &order, nil
}

// List returns orders newest first with their items.
func (r *GORMOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	q := conn(ctx, r.db).Model(&models.Order{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("order_number LIKE ? OR guest_email LIKE ? OR guest_name LIKE ?", like, like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var orders []models.Order
	if err := q.Preload("Items").Preload("AddOns").Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) Update(ctx context.Context, id string, upd models.OrderUpdate) error {
	values := updateColumns(upd)
	if len(values) == 0 {
		return nil
	}
	values["updated_at"] = time.Now()

	db := conn(ctx, r.db)
	q := db.Model(&models.Order{}).Where("id = ?", id)
	if upd.IfStatus != nil {
		q = q.Where("status = ?", *upd.IfStatus)
	}
	if upd.IfPaymentStatus != nil {
		q = q.Where("payment_status = ?", *upd.IfPaymentStatus)
	}
	res := q.Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check order %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %s for update: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order %s: %w", id, ErrConflict)
}

func updateColumns(upd models.OrderUpdate) map[string]any {
	values := map[string]any{}
	if upd.Status != nil {
		values["status"] = *upd.Status
	}
	if upd.PaymentStatus != nil {
		values["payment_status"] = *upd.PaymentStatus
	}
	if upd.TrackingNumber != nil {
		values["tracking_number"] = *upd.TrackingNumber
	}
	if upd.Notes != nil {
		values["notes"] = *upd.Notes
	}
	if upd.PaymentReference != nil {
		values["payment_reference"] = *upd.PaymentReference
	}
	if upd.CaptureID != nil {
		values["capture_id"] = *upd.CaptureID
	}
	if upd.PayerEmail != nil {
		values["payer_email"] = *upd.PayerEmail
	}
	if upd.PaidAt != nil {
		values["paid_at"] = *upd.PaidAt
	}
	if upd.PaymentCancelledAt != nil {
		values["payment_cancelled_at"] = *upd.PaymentCancelledAt
	}
	return values
}
