package services_test

import (
	"context"
	"testing"

	"tienda/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddIncrementsLine(t *testing.T) {
	env := newStoreEnv(t)
	svc := services.NewCartService(env.cart, env.products, nil)
	ctx := context.Background()
	sess := env.customer(t, "ana", true)
	p := env.product(t, "Martillo", 120)

	_, err := svc.AddItem(ctx, sess, p.ID, "", 1)
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, sess, p.ID, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	view, err := svc.GetCart(ctx, sess)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "360", view.Subtotal.String())
	assert.Equal(t, 3, view.ItemCount)
	assert.True(t, view.Items[0].Available)
	assert.Equal(t, "Martillo", view.Items[0].ProductName)
}

func TestCartQuantityZeroRemovesLine(t *testing.T) {
	env := newStoreEnv(t)
	svc := services.NewCartService(env.cart, env.products, nil)
	ctx := context.Background()
	sess := env.customer(t, "ana", true)
	p := env.product(t, "Martillo", 120)

	item, err := svc.AddItem(ctx, sess, p.ID, "", 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, sess, item.ID, 5))
	view, err := svc.GetCart(ctx, sess)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)

	require.NoError(t, svc.UpdateQuantity(ctx, sess, item.ID, 0))
	rows, err := env.cart.ListByUser(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCartRejectsBadInput(t *testing.T) {
	env := newStoreEnv(t)
	svc := services.NewCartService(env.cart, env.products, nil)
	ctx := context.Background()
	sess := env.customer(t, "ana", true)
	p := env.product(t, "Martillo", 120)

	_, err := svc.AddItem(ctx, sess, p.ID, "", 0)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.AddItem(ctx, sess, "missing", "", 1)
	assert.ErrorIs(t, err, services.ErrValidation)

	item, err := svc.AddItem(ctx, sess, p.ID, "", 1)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, sess, item.ID, -1), services.ErrValidation)

	_, err = svc.GetCart(ctx, services.Session{})
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestCartPricesRemovedProductAtZero(t *testing.T) {
	env := newStoreEnv(t)
	svc := services.NewCartService(env.cart, env.products, nil)
	ctx := context.Background()
	sess := env.customer(t, "ana", true)
	kept := env.product(t, "Martillo", 120)
	gone := env.product(t, "Pinzas", 80)

	_, err := svc.AddItem(ctx, sess, kept.ID, "", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, sess, gone.ID, "", 2)
	require.NoError(t, err)
	require.NoError(t, env.products.Delete(ctx, gone.ID))

	view, err := svc.GetCart(ctx, sess)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "120", view.Subtotal.String())
	assert.Equal(t, 3, view.ItemCount)
	for _, line := range view.Items {
		if line.ProductID == gone.ID {
			assert.False(t, line.Available)
			assert.True(t, line.LineTotal.IsZero())
		}
	}
}

func TestCartClear(t *testing.T) {
	env := newStoreEnv(t)
	svc := services.NewCartService(env.cart, env.products, nil)
	ctx := context.Background()
	ana := env.customer(t, "ana", true)
	luis := env.customer(t, "luis", true)
	p := env.product(t, "Martillo", 120)

	_, err := svc.AddItem(ctx, ana, p.ID, "", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, luis, p.ID, "", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, ana))
	view, err := svc.GetCart(ctx, ana)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())

	view, err = svc.GetCart(ctx, luis)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}
