package services_test

import (
	"context"
	"testing"

	"tienda/internal/models"
	"tienda/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeCashOrder(t *testing.T, env *storeEnv, sess services.Session) *models.Order {
	t.Helper()
	p := env.product(t, "Producto-"+sess.Username, 100)
	order, err := env.orderService().PlaceOrder(context.Background(), sess, services.PlaceOrderInput{
		PaymentMethod:  models.PaymentCash,
		ShippingMethod: models.ShippingPickup,
		Items:          []services.LineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	return order
}

func ptr[T any](v T) *T { return &v }

func TestUpdateStatusFollowsTable(t *testing.T) {
	env := newStoreEnv(t)
	svc := env.orderService()
	ctx := context.Background()
	adminSess := env.admin(t)
	order := placeCashOrder(t, env, env.customer(t, "cliente", false))

	updated, err := svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderProcessing, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, updated.Status)

	updated, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderShipped, ptr(" GUIA-123 "))
	require.NoError(t, err)
	assert.Equal(t, "GUIA-123", updated.TrackingNumber)

	// tracking may be corrected while shipped
	updated, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderShipped, ptr("GUIA-456"))
	require.NoError(t, err)
	assert.Equal(t, "GUIA-456", updated.TrackingNumber)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderProcessing, nil)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderCompleted, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderCancelled, nil)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, stored.Status)
	assert.Contains(t, env.events.Keys(), services.EventOrderStatusChanged)
}

func TestUpdateStatusRejects(t *testing.T) {
	env := newStoreEnv(t)
	svc := env.orderService()
	ctx := context.Background()
	adminSess := env.admin(t)
	customer := env.customer(t, "cliente", false)
	order := placeCashOrder(t, env, customer)

	_, err := svc.UpdateStatus(ctx, customer, order.ID, models.OrderProcessing, nil)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, "Perdido", nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderProcessing, ptr("GUIA"))
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateStatus(ctx, adminSess, order.ID, models.OrderPending, nil)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, adminSess, "missing", models.OrderProcessing, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCancelOrderKeepsPaymentStatus(t *testing.T) {
	env := newStoreEnv(t)
	svc := env.orderService()
	ctx := context.Background()
	adminSess := env.admin(t)
	order := placeCashOrder(t, env, env.customer(t, "cliente", false))

	paid := models.PaymentPaid
	processing := models.OrderProcessing
	require.NoError(t, env.orders.Update(ctx, order.ID, models.OrderUpdate{PaymentStatus: &paid, Status: &processing}))

	cancelled, err := svc.CancelOrder(ctx, adminSess, order.ID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentPaid, cancelled.PaymentStatus)
	assert.Contains(t, cancelled.Notes, "Cancelado: cliente desistió")

	_, err = svc.CancelOrder(ctx, adminSess, order.ID, "otra vez")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestCancelOrderByCustomer(t *testing.T) {
	env := newStoreEnv(t)
	svc := env.orderService()
	ctx := context.Background()
	owner := env.customer(t, "dueno", false)
	order := placeCashOrder(t, env, owner)

	_, err := svc.CancelOrder(ctx, env.customer(t, "extrano", false), order.ID, "no")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.CancelOrder(ctx, services.Session{}, order.ID, "no")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	cancelled, err := svc.CancelOrder(ctx, owner, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentPending, cancelled.PaymentStatus)
	assert.Equal(t, "Cancelado", cancelled.Notes)

	_, err = svc.CancelOrder(ctx, env.admin(t), order.ID, "otra vez")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestCustomerCannotCancelProcessingOrder(t *testing.T) {
	env := newStoreEnv(t)
	svc := env.orderService()
	ctx := context.Background()
	owner := env.customer(t, "dueno", false)
	order := placeCashOrder(t, env, owner)

	_, err := svc.UpdateStatus(ctx, env.admin(t), order.ID, models.OrderProcessing, nil)
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, owner, order.ID, "tarde")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}
