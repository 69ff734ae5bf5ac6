package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds the REST app credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	// HTTPClient is used for both the token and the API calls. Defaults to a 30s client.
	HTTPClient *http.Client
}

// Client talks to the Orders v2 and Payments v2 APIs.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client that fetches and refreshes its bearer token with the
// client-credentials grant.
func NewClient(ctx context.Context, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	transport := cfg.HTTPClient
	if transport == nil {
		transport = &http.Client{Timeout: 30 * time.Second}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, transport)
	httpClient := cc.Client(tokenCtx)
	httpClient.Timeout = transport.Timeout
	return &Client{baseURL: base, http: httpClient}
}

// CreateOrder registers a checkout with PayPal. requestID makes retries idempotent.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, requestID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", requestID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches the provider side state of a checkout.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures the funds of an approved checkout.
func (c *Client) CaptureOrder(ctx context.Context, orderID, requestID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", requestID, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundCapture refunds a capture. A nil amount refunds it fully.
func (c *Client) RefundCapture(ctx context.Context, captureID string, amount *Money, requestID string) (*Refund, error) {
	body := refundRequest{Amount: amount}
	var out Refund
	if err := c.do(ctx, http.MethodPost, "/v2/payments/captures/"+captureID+"/refund", requestID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal paypal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build paypal request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read paypal response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}
