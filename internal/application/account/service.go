package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/pkg/id"
	pkgtoken "github.com/edge-landings/api/internal/pkg/token"
	"github.com/edge-landings/api/internal/userstore"
)

// User-facing messages.
const (
	msgAccountExists   = "An account with this email already exists. Please login instead."
	msgNoAccount       = "No account found with this email. Please sign up first."
	msgNoPassword      = "Account found but no password set. Please sign up first to create a password."
	msgBadCredentials  = "Invalid email or password"
	msgResetRequested  = "If an account exists with that email, you will receive a password reset link."
	msgBadResetToken   = "Invalid or expired reset token. Please request a new password reset link."
	msgAccountNotFound = "User account not found"
)

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*SignupResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest, origin string) (string, error)
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	Me(ctx context.Context, email string) (*domain.User, error)
}

type SignupResult struct {
	User       *domain.User
	CustomerID string
}

type LoginResult struct {
	User       *domain.User
	CustomerID string
	Bearer     string
}

type userStore interface {
	Get(ctx context.Context, email string) userstore.Result[*domain.User]
	Exists(ctx context.Context, email string) userstore.Result[bool]
	Set(ctx context.Context, email string, u *domain.User) (*domain.User, error)
	SetResetToken(ctx context.Context, token, email string, expiresAt time.Time) (*domain.ResetToken, error)
	GetResetToken(ctx context.Context, token string) userstore.Result[*domain.ResetToken]
	DeleteResetToken(ctx context.Context, token string) error
}

type customerDirectory interface {
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email string) (*domain.Customer, error)
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type jwtSigner interface {
	Sign(userID, email, customerID string) (string, error)
}

type service struct {
	store     userStore
	customers customerDirectory
	mailer    mailer
	signer    jwtSigner
	siteURL   string
	tokenTTL  time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// ServiceDeps wires a Service. Customers and JWTProvider may be nil when
// billing or session tokens are not configured.
type ServiceDeps struct {
	Store         userStore
	Customers     customerDirectory
	Mailer        mailer
	JWTProvider   jwtSigner
	SiteURL       string
	ResetTokenTTL time.Duration
	Logger        *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	ttl := deps.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		store:     deps.Store,
		customers: deps.Customers,
		mailer:    deps.Mailer,
		signer:    deps.JWTProvider,
		siteURL:   deps.SiteURL,
		tokenTTL:  ttl,
		log:       log.With("component", "account"),
		now:       time.Now,
	}
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*SignupResult, error) {
	if s.store.Exists(ctx, req.Email).Value {
		return nil, domain.NewPublicError(domain.ErrConflict, msgAccountExists)
	}

	var customerID string
	if s.customers != nil {
		cus, err := s.findOrCreateCustomer(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		customerID = cus.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u, err := s.store.Set(ctx, req.Email, &domain.User{
		ID:           id.New(),
		PasswordHash: string(hash),
		CustomerID:   customerID,
		Profile: &domain.Profile{
			Activity: []domain.ActivityEntry{{ID: id.New(), Message: "Account created", CreatedAt: now}},
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, req.Email, welcomeSubject, welcomeEmail(s.siteURL, req.Email)); err != nil {
		s.log.WarnContext(ctx, "welcome email failed", "err", err)
	}
	return &SignupResult{User: u, CustomerID: customerID}, nil
}

func (s *service) findOrCreateCustomer(ctx context.Context, email string) (*domain.Customer, error) {
	cus, err := s.customers.FindCustomerByEmail(ctx, email)
	if err == nil {
		return cus, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find billing customer: %w", err)
	}
	cus, err = s.customers.CreateCustomer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create billing customer: %w", err)
	}
	return cus, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	r := s.store.Get(ctx, req.Email)
	if !r.Found {
		return nil, s.missingAccountError(ctx, req.Email)
	}
	u := r.Value
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.NewPublicError(domain.ErrUnauthorized, msgBadCredentials)
	}

	customerID := u.CustomerID
	if customerID == "" && s.customers != nil {
		if cus, err := s.customers.FindCustomerByEmail(ctx, req.Email); err == nil {
			customerID = cus.ID
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "billing lookup failed during login", "err", err)
		}
	}

	res := &LoginResult{User: u, CustomerID: customerID}
	if s.signer != nil {
		bearer, err := s.signer.Sign(u.ID, u.Email, customerID)
		if err != nil {
			return nil, err
		}
		res.Bearer = bearer
	}
	return res, nil
}

// missingAccountError tells apart customers who paid through a payment link
// but never set a password from unknown emails.
func (s *service) missingAccountError(ctx context.Context, email string) error {
	if s.customers != nil {
		_, err := s.customers.FindCustomerByEmail(ctx, email)
		switch {
		case err == nil:
			return domain.NewPublicError(domain.ErrUnauthorized, msgNoPassword)
		case !errors.Is(err, domain.ErrNotFound):
			s.log.WarnContext(ctx, "billing lookup failed during login", "err", err)
		}
	}
	return domain.NewPublicError(domain.ErrNotFound, msgNoAccount)
}

// ForgotPassword always answers with the same message so callers can't probe
// for registered emails. Failures after validation are only logged.
func (s *service) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest, origin string) (string, error) {
	if !s.accountKnown(ctx, req.Email) {
		return msgResetRequested, nil
	}
	tok, err := pkgtoken.NewResetToken()
	if err != nil {
		s.log.ErrorContext(ctx, "reset token generation failed", "err", err)
		return msgResetRequested, nil
	}
	if _, err := s.store.SetResetToken(ctx, tok, req.Email, s.now().Add(s.tokenTTL)); err != nil {
		s.log.ErrorContext(ctx, "reset token not stored", "err", err)
		return msgResetRequested, nil
	}
	base := origin
	if base == "" {
		base = s.siteURL
	}
	link := fmt.Sprintf("%s/reset-password.html?token=%s", base, tok)
	if err := s.send(ctx, req.Email, resetSubject, resetEmail(link, s.tokenTTL)); err != nil {
		s.log.ErrorContext(ctx, "password reset email failed", "err", err)
	}
	return msgResetRequested, nil
}

func (s *service) accountKnown(ctx context.Context, email string) bool {
	if s.store.Exists(ctx, email).Value {
		return true
	}
	if s.customers == nil {
		return false
	}
	_, err := s.customers.FindCustomerByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "billing lookup failed during password reset", "err", err)
	}
	return err == nil
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	tr := s.store.GetResetToken(ctx, req.Token)
	if !tr.Found {
		return domain.NewPublicError(domain.ErrBadRequest, msgBadResetToken)
	}
	email := tr.Value.Email

	ur := s.store.Get(ctx, email)
	if !ur.Found {
		return domain.NewPublicError(domain.ErrNotFound, msgAccountNotFound)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := ur.Value
	u.PasswordHash = string(hash)
	if _, err := s.store.Set(ctx, email, u); err != nil {
		return err
	}
	if err := s.store.DeleteResetToken(ctx, req.Token); err != nil {
		s.log.WarnContext(ctx, "used reset token not deleted", "err", err)
	}
	return nil
}

// Me returns the stored record behind a session.
func (s *service) Me(ctx context.Context, email string) (*domain.User, error) {
	r := s.store.Get(ctx, email)
	if !r.Found {
		return nil, domain.NewPublicError(domain.ErrNotFound, msgAccountNotFound)
	}
	return r.Value, nil
}

func (s *service) send(ctx context.Context, to, subject, html string) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendEmail(ctx, to, subject, html)
}
