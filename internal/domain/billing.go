package domain

import "time"

// Customer is the subset of a billing customer the app relies on.
type Customer struct {
	ID    string
	Email string
}

// Subscription is the latest subscription of a customer with its price resolved.
type Subscription struct {
	ID               string
	Status           string
	PriceNickname    string
	UnitAmountCents  int64
	CurrentPeriodEnd time.Time
}

// BillingEvent is a verified webhook event. CustomerID is set for
// subscription events.
type BillingEvent struct {
	ID         string
	Type       string
	ObjectID   string
	CustomerID string
	Status     string
}

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type DashboardRequest struct {
	Email      string `json:"email" validate:"required"`
	CustomerID string `json:"customerId" validate:"required"`
}

type PortalRequest struct {
	Email     string `json:"email" validate:"required"`
	ReturnURL string `json:"returnUrl"`
}

type CheckoutRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// Dashboard is everything the customer dashboard page renders.
type Dashboard struct {
	Email        string            `json:"email"`
	CustomerID   string            `json:"customerId"`
	Subscription *SubscriptionView `json:"subscription"`
	PortalURL    string            `json:"portalUrl"`
	Website      WebsiteView       `json:"website"`
	Profile      *Profile          `json:"profile"`
}

type SubscriptionView struct {
	Status          string  `json:"status"`
	PlanName        string  `json:"planName"`
	Amount          float64 `json:"amount"`
	NextBillingDate *string `json:"nextBillingDate"`
}

type WebsiteView struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}
