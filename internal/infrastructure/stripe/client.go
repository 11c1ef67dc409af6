package stripeinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/edge-landings/api/internal/domain"
)

// Client wraps the Stripe API calls the billing flows need.
type Client struct {
	api           *client.API
	webhookSecret string
}

// Option customizes a Client.
type Option func(*stripe.BackendConfig)

// WithBaseURL sends API calls to another host, e.g. stripe-mock or a test server.
func WithBaseURL(u string) Option {
	return func(c *stripe.BackendConfig) { c.URL = stripe.String(u) }
}

func NewClient(secretKey, webhookSecret string, opts ...Option) *Client {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{
		api:           client.New(secretKey, stripe.NewBackendsWithConfig(cfg)),
		webhookSecret: webhookSecret,
	}
}

// FindCustomerByEmail returns the first customer with exactly this email.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := c.api.Customers.List(params)
	if it.Next() {
		cus := it.Customer()
		return &domain.Customer{ID: cus.ID, Email: cus.Email}, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return nil, fmt.Errorf("customer %q: %w", email, domain.ErrNotFound)
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (*domain.Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("accountCreated", time.Now().UTC().Format(time.RFC3339))

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &domain.Customer{ID: cus.ID, Email: cus.Email}, nil
}

// LatestSubscription returns the most recent subscription in any status,
// with its price expanded.
func (c *Client) LatestSubscription(ctx context.Context, customerID string) (*domain.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := c.api.Subscriptions.List(params)
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return nil, fmt.Errorf("subscription for %q: %w", customerID, domain.ErrNotFound)
	}
	sub := it.Subscription()
	out := &domain.Subscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.PriceNickname = price.Nickname
		out.UnitAmountCents = price.UnitAmount
	}
	return out, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

// CreateCheckoutSession starts a one-item subscription checkout and returns
// the session id.
func (c *Client) CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("service", "Edge Landings Website")

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (c *Client) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	if c.webhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is not set")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}
	out := &domain.BillingEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	var obj struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &obj); err == nil {
		out.ObjectID, out.CustomerID, out.Status = obj.ID, obj.Customer, obj.Status
	}
	return out, nil
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cus, err := c.api.Customers.Get(id, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return nil, fmt.Errorf("customer %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &domain.Customer{ID: cus.ID, Email: cus.Email}, nil
}
