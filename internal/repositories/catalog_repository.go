package repositories

import (
	"context"
	"fmt"

	"tienda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines data access for product categories.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// BrandRepository defines data access for brands.
type BrandRepository interface {
	GetAll(ctx context.Context) ([]models.Brand, error)
	GetByID(ctx context.Context, id string) (*models.Brand, error)
	Create(ctx context.Context, brand *models.Brand) error
	Update(ctx context.Context, brand *models.Brand) error
	Delete(ctx context.Context, id string) error
}

// AddOnRepository defines data access for the optional services sold at checkout.
type AddOnRepository interface {
	GetAll(ctx context.Context, activeOnly bool) ([]models.AddOnService, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.AddOnService, error)
	Create(ctx context.Context, addOn *models.AddOnService) error
	Update(ctx context.Context, addOn *models.AddOnService) error
	Delete(ctx context.Context, id string) error
}

// gormTable holds the CRUD shared by the small catalog tables.
type gormTable[T any] struct {
	db    *gorm.DB
	label string
}

func (t gormTable[T]) all(ctx context.Context, order string, query ...any) ([]T, error) {
	q := conn(ctx, t.db).Order(order)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", t.label, err)
	}
	return rows, nil
}

func (t gormTable[T]) byID(ctx context.Context, id string) (*T, error) {
	var row T
	if err := conn(ctx, t.db).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "%s with ID %s", t.label, id)
	}
	return &row, nil
}

func (t gormTable[T]) create(ctx context.Context, row *T) error {
	if err := conn(ctx, t.db).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", t.label, err)
	}
	return nil
}

func (t gormTable[T]) update(ctx context.Context, id string, row *T) error {
	res := conn(ctx, t.db).Model(new(T)).Where("id = ?", id).Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", t.label, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s with ID %s for update: %w", t.label, id, ErrNotFound)
	}
	return nil
}

func (t gormTable[T]) delete(ctx context.Context, id string) error {
	res := conn(ctx, t.db).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", t.label, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s with ID %s for deletion: %w", t.label, id, ErrNotFound)
	}
	return nil
}

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	table gormTable[models.Category]
}

func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{table: gormTable[models.Category]{db: db, label: "category"}}
}

func (r *GORMCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	return r.table.all(ctx, "name asc")
}

func (r *GORMCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return r.table.byID(ctx, id)
}

func (r *GORMCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	return r.table.create(ctx, category)
}

func (r *GORMCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.table.update(ctx, category.ID, category)
}

func (r *GORMCategoryRepository) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, id)
}

// GORMBrandRepository is a GORM implementation of BrandRepository.
type GORMBrandRepository struct {
	table gormTable[models.Brand]
}

func NewGORMBrandRepository(db *gorm.DB) *GORMBrandRepository {
	return &GORMBrandRepository{table: gormTable[models.Brand]{db: db, label: "brand"}}
}

func (r *GORMBrandRepository) GetAll(ctx context.Context) ([]models.Brand, error) {
	return r.table.all(ctx, "name asc")
}

func (r *GORMBrandRepository) GetByID(ctx context.Context, id string) (*models.Brand, error) {
	return r.table.byID(ctx, id)
}

func (r *GORMBrandRepository) Create(ctx context.Context, brand *models.Brand) error {
	if brand.ID == "" {
		brand.ID = uuid.New().String()
	}
	return r.table.create(ctx, brand)
}

func (r *GORMBrandRepository) Update(ctx context.Context, brand *models.Brand) error {
	return r.table.update(ctx, brand.ID, brand)
}

func (r *GORMBrandRepository) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, id)
}

// GORMAddOnRepository is a GORM implementation of AddOnRepository.
type GORMAddOnRepository struct {
	table gormTable[models.AddOnService]
}

func NewGORMAddOnRepository(db *gorm.DB) *GORMAddOnRepository {
	return &GORMAddOnRepository{table: gormTable[models.AddOnService]{db: db, label: "add-on service"}}
}

func (r *GORMAddOnRepository) GetAll(ctx context.Context, activeOnly bool) ([]models.AddOnService, error) {
	if activeOnly {
		return r.table.all(ctx, "name asc", "active = ?", true)
	}
	return r.table.all(ctx, "name asc")
}

// GetByIDs returns the requested add-ons that exist. Callers check for missing ids.
func (r *GORMAddOnRepository) GetByIDs(ctx context.Context, ids []string) ([]models.AddOnService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.table.all(ctx, "name asc", "id IN ?", ids)
}

func (r *GORMAddOnRepository) Create(ctx context.Context, addOn *models.AddOnService) error {
	if addOn.ID == "" {
		addOn.ID = uuid.New().String()
	}
	if err := r.table.create(ctx, addOn); err != nil {
		return err
	}
	if !addOn.Active {
		return r.table.update(ctx, addOn.ID, addOn)
	}
	return nil
}

func (r *GORMAddOnRepository) Update(ctx context.Context, addOn *models.AddOnService) error {
	return r.table.update(ctx, addOn.ID, addOn)
}

func (r *GORMAddOnRepository) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, id)
}
