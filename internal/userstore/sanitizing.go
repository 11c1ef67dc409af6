package userstore

import (
	"context"
	"errors"

	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/pkg/sanitize"
)

// Sanitizing wraps a relational backend whose encoding layer rejects
// non-ASCII input. Every string is reduced to ASCII before it leaves the
// process and password hashes are checked against the bcrypt alphabet.
type Sanitizing struct {
	inner Backend
}

func NewSanitizing(inner Backend) *Sanitizing {
	return &Sanitizing{inner: inner}
}

func (s *Sanitizing) Name() string { return "hybrid" }

// Key returns the form a key is stored under.
func (s *Sanitizing) Key(k string) string { return sanitize.Text(k) }

func (s *Sanitizing) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

func (s *Sanitizing) GetUser(ctx context.Context, email string) (*domain.User, error) {
	return s.inner.GetUser(ctx, s.Key(email))
}

func (s *Sanitizing) PutUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	clean, err := sanitizeUser(u)
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, s.Name(), "set user", err)
	}
	return s.inner.PutUser(ctx, clean)
}

func (s *Sanitizing) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.inner.ListUsers(ctx)
}

func (s *Sanitizing) PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	c := *t
	c.Token = sanitize.Text(t.Token)
	c.Email = sanitize.Text(t.Email)
	if c.Token == "" {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, s.Name(), "set reset token", errors.New("token is empty after sanitization"))
	}
	return s.inner.PutResetToken(ctx, &c)
}

func (s *Sanitizing) GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	return s.inner.GetResetToken(ctx, s.Key(token))
}

func (s *Sanitizing) DeleteResetToken(ctx context.Context, token string) error {
	return s.inner.DeleteResetToken(ctx, s.Key(token))
}

func sanitizeUser(u *domain.User) (*domain.User, error) {
	c := u.Clone()
	c.Email = sanitize.Text(u.Email)
	if c.Email == "" {
		return nil, errors.New("email is empty after sanitization")
	}
	c.ID = sanitize.Text(u.ID)
	c.CustomerID = sanitize.Text(u.CustomerID)
	hash, err := sanitize.Hash(u.PasswordHash)
	if err != nil {
		return nil, err
	}
	c.PasswordHash = hash
	if p := c.Profile; p != nil {
		p.Plan = sanitize.Text(p.Plan)
		for i := range p.Checklist {
			p.Checklist[i].Label = sanitize.Text(p.Checklist[i].Label)
		}
		for i := range p.Activity {
			p.Activity[i].ID = sanitize.Text(p.Activity[i].ID)
			p.Activity[i].Message = sanitize.Text(p.Activity[i].Message)
		}
	}
	return c, nil
}
