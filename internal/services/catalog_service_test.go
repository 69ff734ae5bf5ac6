package services_test

import (
	"context"
	"testing"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Herramientas Eléctricas": "herramientas-electricas",
		"  Jardín & Baño ":        "jardin-bano",
		"Niño":                    "nino",
		"---":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, services.Slugify(in), in)
	}
}

func newCatalog(env *storeEnv) *services.CatalogService {
	return services.NewCatalogService(
		repositories.NewGORMCategoryRepository(env.db),
		repositories.NewGORMBrandRepository(env.db),
		env.addOns,
	)
}

func TestCatalogRequiresAdmin(t *testing.T) {
	env := newStoreEnv(t)
	svc := newCatalog(env)
	ctx := context.Background()
	customer := env.customer(t, "ana", true)

	err := svc.SaveCategory(ctx, customer, &models.Category{Name: "Pintura"})
	assert.ErrorIs(t, err, services.ErrForbidden)
	err = svc.SaveBrand(ctx, services.Session{}, &models.Brand{Name: "Truper"})
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	err = svc.DeleteAddOn(ctx, customer, "any")
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestCatalogSaveCreatesThenUpdates(t *testing.T) {
	env := newStoreEnv(t)
	svc := newCatalog(env)
	ctx := context.Background()
	adminSess := env.admin(t)

	c := &models.Category{Name: " Pintura Vinílica "}
	require.NoError(t, svc.SaveCategory(ctx, adminSess, c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "pintura-vinilica", c.Slug)

	c.Description = "Interiores"
	require.NoError(t, svc.SaveCategory(ctx, adminSess, c))
	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Interiores", all[0].Description)

	require.NoError(t, svc.DeleteCategory(ctx, adminSess, c.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, adminSess, c.ID), services.ErrNotFound)
}

func TestAddOnsHiddenWhenInactive(t *testing.T) {
	env := newStoreEnv(t)
	svc := newCatalog(env)
	ctx := context.Background()
	adminSess := env.admin(t)

	wrap := &models.AddOnService{Name: "Envoltura", Price: decimal.NewFromInt(30), Active: true}
	install := &models.AddOnService{Name: "Instalación", Price: decimal.NewFromInt(250), Active: true}
	require.NoError(t, svc.SaveAddOn(ctx, adminSess, wrap))
	require.NoError(t, svc.SaveAddOn(ctx, adminSess, install))
	install.Active = false
	require.NoError(t, svc.SaveAddOn(ctx, adminSess, install))

	visible, err := svc.ListAddOns(ctx, services.Session{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Envoltura", visible[0].Name)

	everything, err := svc.ListAddOns(ctx, adminSess)
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	err = svc.SaveAddOn(ctx, adminSess, &models.AddOnService{Name: "Flete", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, services.ErrValidation)
}
