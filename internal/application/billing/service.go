package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/pkg/id"
	"github.com/edge-landings/api/internal/userstore"
)

const (
	msgNotConfigured   = "Billing is not configured on this server."
	msgNoSubscription  = "No subscription found for this email"
	msgCustomerMissing = "Customer not found"

	maxActivity = 20
)

var defaultChecklist = []string{
	"Choose your template",
	"Send us your logo and photos",
	"Review your website draft",
	"Connect your domain",
	"Go live",
}

type Service interface {
	Dashboard(ctx context.Context, req domain.DashboardRequest, returnURL string) (*domain.Dashboard, error)
	CreatePortalSession(ctx context.Context, req domain.PortalRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.BillingEvent, error)
}

type userStore interface {
	Get(ctx context.Context, email string) userstore.Result[*domain.User]
	Set(ctx context.Context, email string, u *domain.User) (*domain.User, error)
}

type provider interface {
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	LatestSubscription(ctx context.Context, customerID string) (*domain.Subscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error)
}

type service struct {
	store   userStore
	billing provider
	siteURL string
	log     *slog.Logger
	now     func() time.Time
}

// ServiceDeps wires a Service. Billing may be nil when Stripe is not
// configured; every operation then reports the service unavailable.
type ServiceDeps struct {
	Store   userStore
	Billing provider
	SiteURL string
	Logger  *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{
		store:   deps.Store,
		billing: deps.Billing,
		siteURL: deps.SiteURL,
		log:     log.With("component", "billing"),
		now:     time.Now,
	}
}

func (s *service) Dashboard(ctx context.Context, req domain.DashboardRequest, returnURL string) (*domain.Dashboard, error) {
	if s.billing == nil {
		return nil, domain.NewPublicError(domain.ErrUnavailable, msgNotConfigured)
	}
	if _, err := s.billing.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewPublicError(domain.ErrNotFound, msgCustomerMissing)
		}
		return nil, err
	}

	var view *domain.SubscriptionView
	sub, err := s.billing.LatestSubscription(ctx, req.CustomerID)
	switch {
	case err == nil:
		view = subscriptionView(sub)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	portal, err := s.billing.CreatePortalSession(ctx, req.CustomerID, returnURL)
	if err != nil {
		return nil, err
	}

	var profile *domain.Profile
	if r := s.store.Get(ctx, req.Email); r.Found {
		profile = r.Value.Profile
	}
	return &domain.Dashboard{
		Email:        req.Email,
		CustomerID:   req.CustomerID,
		Subscription: view,
		PortalURL:    portal,
		Website:      domain.WebsiteView{Status: "Active", URL: s.siteURL},
		Profile:      fillProfile(profile, view),
	}, nil
}

func (s *service) CreatePortalSession(ctx context.Context, req domain.PortalRequest) (string, error) {
	if s.billing == nil {
		return "", domain.NewPublicError(domain.ErrUnavailable, msgNotConfigured)
	}
	cus, err := s.billing.FindCustomerByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.NewPublicError(domain.ErrNotFound, msgNoSubscription)
		}
		return "", err
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.siteURL + "/"
	}
	return s.billing.CreatePortalSession(ctx, cus.ID, returnURL)
}

func (s *service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if s.billing == nil {
		return "", domain.NewPublicError(domain.ErrUnavailable, msgNotConfigured)
	}
	return s.billing.CreateCheckoutSession(ctx, req.PriceID, req.SuccessURL, req.CancelURL)
}

// HandleWebhook verifies and records a billing event. Recording failures are
// logged and never reported back to the sender.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.BillingEvent, error) {
	if s.billing == nil {
		return nil, domain.NewPublicError(domain.ErrUnavailable, msgNotConfigured)
	}
	ev, err := s.billing.ParseWebhook(payload, signature)
	if err != nil {
		s.log.WarnContext(ctx, "webhook signature verification failed", "err", err)
		return nil, domain.NewPublicError(domain.ErrBadRequest, "Webhook Error: "+err.Error())
	}

	var message string
	switch ev.Type {
	case domain.EventSubscriptionCreated:
		message = "Subscription started"
	case domain.EventSubscriptionUpdated:
		message = fmt.Sprintf("Subscription updated (%s)", ev.Status)
	case domain.EventSubscriptionDeleted:
		message = "Subscription cancelled"
	default:
		s.log.InfoContext(ctx, "unhandled webhook event", "type", ev.Type, "event_id", ev.ID)
		return ev, nil
	}
	s.log.InfoContext(ctx, "subscription event", "type", ev.Type, "subscription_id", ev.ObjectID, "customer_id", ev.CustomerID)
	s.recordActivity(ctx, ev, message)
	return ev, nil
}

func (s *service) recordActivity(ctx context.Context, ev *domain.BillingEvent, message string) {
	if ev.CustomerID == "" {
		return
	}
	cus, err := s.billing.GetCustomer(ctx, ev.CustomerID)
	if err != nil {
		s.log.WarnContext(ctx, "webhook customer lookup failed", "customer_id", ev.CustomerID, "err", err)
		return
	}
	r := s.store.Get(ctx, cus.Email)
	if !r.Found {
		s.log.InfoContext(ctx, "webhook customer has no account", "customer_id", ev.CustomerID)
		return
	}
	u := r.Value
	if u.Profile == nil {
		u.Profile = &domain.Profile{}
	}
	if u.CustomerID == "" {
		u.CustomerID = cus.ID
	}
	if ev.Type == domain.EventSubscriptionDeleted {
		u.Profile.Plan = ""
	}
	u.Profile.Activity = append(u.Profile.Activity, domain.ActivityEntry{
		ID:        id.New(),
		Message:   message,
		CreatedAt: s.now().UTC(),
	})
	if n := len(u.Profile.Activity); n > maxActivity {
		u.Profile.Activity = u.Profile.Activity[n-maxActivity:]
	}
	if _, err := s.store.Set(ctx, u.Email, u); err != nil {
		s.log.ErrorContext(ctx, "webhook activity not recorded", "email", u.Email, "err", err)
	}
}

func subscriptionView(sub *domain.Subscription) *domain.SubscriptionView {
	amount := float64(sub.UnitAmountCents) / 100
	v := &domain.SubscriptionView{
		Status:   sub.Status,
		PlanName: sub.PriceNickname,
		Amount:   amount,
	}
	if v.PlanName == "" {
		v.PlanName = fmt.Sprintf("$%s/month", formatAmount(amount))
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		d := sub.CurrentPeriodEnd.Format("1/2/2006")
		v.NextBillingDate = &d
	}
	return v
}

func formatAmount(a float64) string {
	if a == float64(int64(a)) {
		return fmt.Sprintf("%d", int64(a))
	}
	return fmt.Sprintf("%.2f", a)
}

// fillProfile returns a copy of p with every dashboard field populated.
func fillProfile(p *domain.Profile, sub *domain.SubscriptionView) *domain.Profile {
	out := p.Clone()
	if out == nil {
		out = &domain.Profile{}
	}
	if sub != nil && sub.Status != "canceled" {
		out.Plan = sub.PlanName
	}
	if out.Plan == "" {
		out.Plan = "None"
	}
	if len(out.Checklist) == 0 {
		out.Checklist = make([]domain.ChecklistItem, len(defaultChecklist))
		for i, label := range defaultChecklist {
			out.Checklist[i] = domain.ChecklistItem{Label: label}
		}
	}
	if out.WebsiteProgress == 0 {
		done := 0
		for _, c := range out.Checklist {
			if c.Done {
				done++
			}
		}
		out.WebsiteProgress = done * 100 / len(out.Checklist)
	}
	if out.Activity == nil {
		out.Activity = []domain.ActivityEntry{}
	}
	return out
}
