package paypal_test

import (
	"context"
	"errors"
	"testing"

	"tienda/pkg/paypal"
	"tienda/pkg/paypal/paypaltest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderRequest() paypal.CreateOrderRequest {
	total := paypal.NewMoney("MXN", decimal.NewFromInt(400))
	return paypal.CreateOrderRequest{
		Intent: paypal.IntentCapture,
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: "ORD-1",
			Amount:      &paypal.Amount{CurrencyCode: total.CurrencyCode, Value: total.Value},
		}},
	}
}

func TestCreateAndCaptureOrder(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	ctx := context.Background()
	client := paypal.NewClient(ctx, srv.Config())

	created, err := client.CreateOrder(ctx, newOrderRequest(), "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, paypal.StatusCreated, created.Status)
	assert.Contains(t, created.ApprovalURL(), created.ID)

	// same request id returns the same provider order
	again, err := client.CreateOrder(ctx, newOrderRequest(), "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, 1, srv.CreateCalls)

	srv.Approve(created.ID)
	captured, err := client.CaptureOrder(ctx, created.ID, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, paypal.StatusCompleted, captured.Status)
	require.NotNil(t, captured.FirstCapture())
	assert.Equal(t, "CAP-"+created.ID, captured.FirstCapture().ID)
	assert.Equal(t, "buyer@example.com", captured.Payer.EmailAddress)

	// token is cached between calls
	assert.Equal(t, 1, srv.TokenCalls)
}

func TestCaptureErrorIsTyped(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	srv.FailCapture = true
	srv.Seed("PP-X")
	ctx := context.Background()
	client := paypal.NewClient(ctx, srv.Config())

	_, err := client.CaptureOrder(ctx, "PP-X", "r")
	require.Error(t, err)

	var apiErr *paypal.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.True(t, apiErr.HasIssue("INSTRUMENT_DECLINED"))
	assert.Contains(t, apiErr.Error(), "UNPROCESSABLE_ENTITY")
}

func TestRefundCapture(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	ctx := context.Background()
	client := paypal.NewClient(ctx, srv.Config())

	refund, err := client.RefundCapture(ctx, "CAP-1", nil, "refund-1")
	require.NoError(t, err)
	assert.Equal(t, "REF-CAP-1", refund.ID)
	assert.Equal(t, 1, srv.RefundCalls)
}

func TestBadCredentials(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	cfg := srv.Config()
	cfg.ClientSecret = "wrong"
	ctx := context.Background()

	_, err := paypal.NewClient(ctx, cfg).GetOrder(ctx, "PP-1")
	assert.Error(t, err)
}

func TestNewMoneyFormatsTwoDecimals(t *testing.T) {
	assert.Equal(t, "150.00", paypal.NewMoney("MXN", decimal.NewFromInt(150)).Value)
	assert.Equal(t, "19.99", paypal.NewMoney("MXN", decimal.RequireFromString("19.989")).Value)
}
