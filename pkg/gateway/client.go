package gateway

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/pkg/config"
)

// PaymentIntent is the gateway-side order a client completes payment
// against. Amounts cross the wire in minor units.
type PaymentIntent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// IntentCreator is the surface the order lifecycle engine consumes.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*PaymentIntent, error)
}

// Client talks to the Razorpay-style payment gateway REST API.
type Client struct {
	http     *resty.Client
	keyID    string
	currency string
}

// New builds a gateway client from configuration.
func New(cfg config.GatewayConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if cfg.KeyID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("gateway credentials are required")
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.KeyID, cfg.Secret).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     http,
		keyID:    cfg.KeyID,
		currency: cfg.Currency,
	}, nil
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreatePaymentIntent opens a gateway order for the given amount. The
// caller completes the payment client-side and confirms it back through
// the order lifecycle engine.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*PaymentIntent, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	payload := createIntentRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: c.currency,
		Receipt:  newReceiptID(),
	}

	var intent PaymentIntent
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&intent).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create payment intent: gateway returned %s", resp.Status())
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("create payment intent: empty intent id")
	}
	return &intent, nil
}
