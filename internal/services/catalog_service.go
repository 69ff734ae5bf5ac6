package services

import (
	"context"
	"regexp"
	"strings"

	"tienda/internal/models"
	"tienda/internal/repositories"
)

// CatalogService manages categories, brands and add-on services.
type CatalogService struct {
	categories repositories.CategoryRepository
	brands     repositories.BrandRepository
	addOns     repositories.AddOnRepository
}

func NewCatalogService(categories repositories.CategoryRepository, brands repositories.BrandRepository, addOns repositories.AddOnRepository) *CatalogService {
	return &CatalogService{categories: categories, brands: brands, addOns: addOns}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.GetAll(ctx)
}

func (s *CatalogService) SaveCategory(ctx context.Context, sess Session, c *models.Category) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.ID == "" {
		return s.categories.Create(ctx, c)
	}
	return s.categories.Update(ctx, c)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, sess Session, id string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	return s.brands.GetAll(ctx)
}

func (s *CatalogService) SaveBrand(ctx context.Context, sess Session, b *models.Brand) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	b.Name = strings.TrimSpace(b.Name)
	if b.Slug == "" {
		b.Slug = Slugify(b.Name)
	}
	if b.ID == "" {
		return s.brands.Create(ctx, b)
	}
	return s.brands.Update(ctx, b)
}

func (s *CatalogService) DeleteBrand(ctx context.Context, sess Session, id string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.brands.Delete(ctx, id)
}

// ListAddOns lists add-on services; only admins see inactive ones.
func (s *CatalogService) ListAddOns(ctx context.Context, sess Session) ([]models.AddOnService, error) {
	return s.addOns.GetAll(ctx, !sess.IsAdmin())
}

func (s *CatalogService) SaveAddOn(ctx context.Context, sess Session, a *models.AddOnService) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if a.Price.IsNegative() {
		return invalidField("price", "must not be negative")
	}
	if a.ID == "" {
		return s.addOns.Create(ctx, a)
	}
	return s.addOns.Update(ctx, a)
}

func (s *CatalogService) DeleteAddOn(ctx context.Context, sess Session, id string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.addOns.Delete(ctx, id)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

var accents = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n")

// Slugify lower-cases name and joins its words with dashes.
func Slugify(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}
