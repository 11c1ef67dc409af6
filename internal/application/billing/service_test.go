package billing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/userstore"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	args := m.Called(ctx, email)
	c, _ := args.Get(0).(*domain.Customer)
	return c, args.Error(1)
}
func (m *mockProvider) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Customer)
	return c, args.Error(1)
}
func (m *mockProvider) LatestSubscription(ctx context.Context, customerID string) (*domain.Subscription, error) {
	args := m.Called(ctx, customerID)
	s, _ := args.Get(0).(*domain.Subscription)
	return s, args.Error(1)
}
func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}
func (m *mockProvider) CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (string, error) {
	args := m.Called(ctx, priceID, successURL, cancelURL)
	return args.String(0), args.Error(1)
}
func (m *mockProvider) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	args := m.Called(payload, signature)
	e, _ := args.Get(0).(*domain.BillingEvent)
	return e, args.Error(1)
}

func discard() *slog.Logger { return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)) }

func newSvc(store *userstore.Store, p *mockProvider) Service {
	deps := ServiceDeps{Store: store, SiteURL: "https://edgelandings.com", Logger: discard()}
	if p != nil {
		deps.Billing = p
	}
	return NewService(deps)
}

func TestDashboard(t *testing.T) {
	store := userstore.NewStore(nil, discard())
	_, err := store.Set(context.Background(), "a@b.com", &domain.User{ID: "u1", PasswordHash: "h"})
	require.NoError(t, err)

	p := new(mockProvider)
	p.On("GetCustomer", mock.Anything, "cus_1").Return(&domain.Customer{ID: "cus_1", Email: "a@b.com"}, nil)
	p.On("LatestSubscription", mock.Anything, "cus_1").Return(&domain.Subscription{
		Status:           "active",
		UnitAmountCents:  4900,
		CurrentPeriodEnd: time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
	}, nil)
	p.On("CreatePortalSession", mock.Anything, "cus_1", "https://x.test/dashboard.html").Return("https://billing.test/p/1", nil)

	d, err := newSvc(store, p).Dashboard(context.Background(),
		domain.DashboardRequest{Email: "a@b.com", CustomerID: "cus_1"}, "https://x.test/dashboard.html")
	require.NoError(t, err)

	require.NotNil(t, d.Subscription)
	assert.Equal(t, "$49/month", d.Subscription.PlanName)
	assert.Equal(t, 49.0, d.Subscription.Amount)
	require.NotNil(t, d.Subscription.NextBillingDate)
	assert.Equal(t, "11/3/2026", *d.Subscription.NextBillingDate)
	assert.Equal(t, "https://billing.test/p/1", d.PortalURL)
	assert.Equal(t, domain.WebsiteView{Status: "Active", URL: "https://edgelandings.com"}, d.Website)

	require.NotNil(t, d.Profile)
	assert.Equal(t, "$49/month", d.Profile.Plan)
	assert.Len(t, d.Profile.Checklist, len(defaultChecklist))
	assert.Equal(t, 0, d.Profile.WebsiteProgress)
	assert.NotNil(t, d.Profile.Activity)
}

func TestDashboard_NoSubscription(t *testing.T) {
	p := new(mockProvider)
	p.On("GetCustomer", mock.Anything, "cus_1").Return(&domain.Customer{ID: "cus_1"}, nil)
	p.On("LatestSubscription", mock.Anything, "cus_1").Return(nil, domain.ErrNotFound)
	p.On("CreatePortalSession", mock.Anything, "cus_1", mock.Anything).Return("https://billing.test/p/1", nil)

	d, err := newSvc(userstore.NewStore(nil, discard()), p).Dashboard(context.Background(),
		domain.DashboardRequest{Email: "a@b.com", CustomerID: "cus_1"}, "")
	require.NoError(t, err)
	assert.Nil(t, d.Subscription)
	assert.Equal(t, "None", d.Profile.Plan)
}

func TestDashboard_UnknownCustomer(t *testing.T) {
	p := new(mockProvider)
	p.On("GetCustomer", mock.Anything, "cus_x").Return(nil, domain.ErrNotFound)

	_, err := newSvc(userstore.NewStore(nil, discard()), p).Dashboard(context.Background(),
		domain.DashboardRequest{Email: "a@b.com", CustomerID: "cus_x"}, "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNotConfigured(t *testing.T) {
	svc := newSvc(userstore.NewStore(nil, discard()), nil)

	_, err := svc.CreatePortalSession(context.Background(), domain.PortalRequest{Email: "a@b.com"})
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	_, err = svc.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{PriceID: "price_1"})
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	_, err = svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}

func TestCreatePortalSession(t *testing.T) {
	p := new(mockProvider)
	p.On("FindCustomerByEmail", mock.Anything, "a@b.com").Return(&domain.Customer{ID: "cus_1"}, nil)
	p.On("CreatePortalSession", mock.Anything, "cus_1", "https://edgelandings.com/").Return("https://billing.test/p/2", nil)

	url, err := newSvc(userstore.NewStore(nil, discard()), p).CreatePortalSession(context.Background(), domain.PortalRequest{Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/p/2", url)
}

func TestCreatePortalSession_NoCustomer(t *testing.T) {
	p := new(mockProvider)
	p.On("FindCustomerByEmail", mock.Anything, "x@b.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(userstore.NewStore(nil, discard()), p).CreatePortalSession(context.Background(), domain.PortalRequest{Email: "x@b.com"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, msgNoSubscription, err.Error())
}

func TestHandleWebhook_RecordsActivity(t *testing.T) {
	store := userstore.NewStore(nil, discard())
	_, err := store.Set(context.Background(), "a@b.com", &domain.User{ID: "u1", PasswordHash: "h", Profile: &domain.Profile{Plan: "Pro"}})
	require.NoError(t, err)

	p := new(mockProvider)
	p.On("ParseWebhook", []byte("payload"), "sig").Return(&domain.BillingEvent{
		ID: "evt_1", Type: domain.EventSubscriptionDeleted, ObjectID: "sub_1", CustomerID: "cus_1",
	}, nil)
	p.On("GetCustomer", mock.Anything, "cus_1").Return(&domain.Customer{ID: "cus_1", Email: "a@b.com"}, nil)

	ev, err := newSvc(store, p).HandleWebhook(context.Background(), []byte("payload"), "sig")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)

	r := store.Get(context.Background(), "a@b.com")
	require.True(t, r.Found)
	assert.Empty(t, r.Value.Profile.Plan)
	assert.Equal(t, "cus_1", r.Value.CustomerID)
	require.Len(t, r.Value.Profile.Activity, 1)
	assert.Equal(t, "Subscription cancelled", r.Value.Profile.Activity[0].Message)
}

func TestHandleWebhook_UnhandledType(t *testing.T) {
	p := new(mockProvider)
	p.On("ParseWebhook", mock.Anything, mock.Anything).Return(&domain.BillingEvent{ID: "evt_2", Type: "invoice.paid"}, nil)

	ev, err := newSvc(userstore.NewStore(nil, discard()), p).HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, "invoice.paid", ev.Type)
	p.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	p := new(mockProvider)
	p.On("ParseWebhook", mock.Anything, mock.Anything).Return(nil, errors.New("no signatures found matching the expected signature"))

	_, err := newSvc(userstore.NewStore(nil, discard()), p).HandleWebhook(context.Background(), []byte("{}"), "bad")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "Webhook Error:")
}

func TestFillProfile_Progress(t *testing.T) {
	p := fillProfile(&domain.Profile{Checklist: []domain.ChecklistItem{{Label: "a", Done: true}, {Label: "b"}}}, nil)
	assert.Equal(t, 50, p.WebsiteProgress)
	assert.Equal(t, "None", p.Plan)
}
