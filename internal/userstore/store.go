// Package userstore is the single owner of user records and reset tokens.
// It fronts one configured backend with a process-local memory mirror:
// reads fall back to the mirror when the backend fails, writes never do.
package userstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edge-landings/api/internal/domain"
)

// Backend is the persistence capability every store technology provides.
// GetUser and GetResetToken return an error wrapping domain.ErrNotFound when
// the key is absent. Write errors should already be *domain.StoreError.
type Backend interface {
	Name() string
	GetUser(ctx context.Context, email string) (*domain.User, error)
	PutUser(ctx context.Context, u *domain.User) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error)
	GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// KeyNormalizer is implemented by backends that rewrite keys before storing
// them. The store files its memory mirror under the same keys so fallback
// reads find what the backend accepted.
type KeyNormalizer interface {
	Key(s string) string
}

// Source tells which store answered a read.
type Source int

const (
	SourcePrimary Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "primary"
}

// Result is the outcome of a fail-soft read. Err holds the backend error
// that forced a fallback answer and is nil when the primary answered.
type Result[T any] struct {
	Value  T
	Found  bool
	Source Source
	Err    error
}

// Store is the user-store adapter. It is safe for concurrent use.
type Store struct {
	primary  Backend
	fallback *Memory
	log      *slog.Logger
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps primary with a fresh memory fallback. A nil primary gives a
// memory-only store.
func NewStore(primary Backend, log *slog.Logger, opts ...Option) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{fallback: NewMemory(), log: log, now: time.Now}
	s.primary = primary
	if primary == nil {
		s.primary = s.fallback
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "userstore", "backend", s.primary.Name())
	return s
}

// Backend returns the name of the active backend.
func (s *Store) Backend() string { return s.primary.Name() }

// MemoryOnly reports whether no external backend is active.
func (s *Store) MemoryOnly() bool { return s.primary == Backend(s.fallback) }

// Ping checks the active backend.
func (s *Store) Ping(ctx context.Context) error { return s.primary.Ping(ctx) }

// Get returns the user for email. It never fails: on backend error the
// memory mirror answers.
func (s *Store) Get(ctx context.Context, email string) Result[*domain.User] {
	u, err := s.primary.GetUser(ctx, email)
	switch {
	case err == nil:
		s.mirrorUser(ctx, u)
		return Result[*domain.User]{Value: u, Found: true}
	case errors.Is(err, domain.ErrNotFound):
		return Result[*domain.User]{}
	}
	s.log.WarnContext(ctx, "user lookup failed, using memory fallback", "op", "get", "err", err)
	fu, ferr := s.fallback.GetUser(ctx, s.key(email))
	if ferr != nil {
		return Result[*domain.User]{Source: SourceFallback, Err: err}
	}
	return Result[*domain.User]{Value: fu, Found: true, Source: SourceFallback, Err: err}
}

// Exists reports whether a user is stored under email.
func (s *Store) Exists(ctx context.Context, email string) Result[bool] {
	r := s.Get(ctx, email)
	return Result[bool]{Value: r.Found, Found: r.Found, Source: r.Source, Err: r.Err}
}

// GetAll returns every user keyed by email. Meant for admin and debug views.
func (s *Store) GetAll(ctx context.Context) Result[map[string]*domain.User] {
	users, err := s.primary.ListUsers(ctx)
	src := SourcePrimary
	if err != nil {
		s.log.WarnContext(ctx, "user listing failed, using memory fallback", "op", "get_all", "err", err)
		users, _ = s.fallback.ListUsers(ctx)
		src = SourceFallback
	}
	out := make(map[string]*domain.User, len(users))
	for _, u := range users {
		out[u.Email] = u
	}
	return Result[map[string]*domain.User]{Value: out, Found: len(out) > 0, Source: src, Err: err}
}

// Set writes u under email, overwriting any existing record. A backend
// failure is returned as a *domain.StoreError and nothing is kept in memory.
func (s *Store) Set(ctx context.Context, email string, u *domain.User) (*domain.User, error) {
	rec := u.Clone()
	rec.Email = email
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	stored, err := s.primary.PutUser(ctx, rec)
	if err != nil {
		s.log.ErrorContext(ctx, "user write failed", "op", "set", "err", err)
		return nil, domain.NewStoreError(domain.StoreErrUnknown, s.primary.Name(), "set user", err)
	}
	s.mirrorUser(ctx, stored)
	return stored, nil
}

// SetResetToken stores a token for email that stops being valid at expiresAt.
func (s *Store) SetResetToken(ctx context.Context, token, email string, expiresAt time.Time) (*domain.ResetToken, error) {
	rec := &domain.ResetToken{
		Token:         token,
		Email:         email,
		ExpiresAt:     expiresAt.UTC(),
		ExpiresAtUnix: expiresAt.Unix(),
	}
	stored, err := s.primary.PutResetToken(ctx, rec)
	if err != nil {
		s.log.ErrorContext(ctx, "reset token write failed", "op", "set_reset_token", "err", err)
		return nil, domain.NewStoreError(domain.StoreErrUnknown, s.primary.Name(), "set reset token", err)
	}
	if !s.MemoryOnly() {
		_, _ = s.fallback.PutResetToken(ctx, stored)
	}
	return stored, nil
}

// GetResetToken returns a token that has not yet expired. An expired token is
// reported absent and deleted from both the backend and the memory mirror.
func (s *Store) GetResetToken(ctx context.Context, token string) Result[*domain.ResetToken] {
	src := SourcePrimary
	t, err := s.primary.GetResetToken(ctx, token)
	var cause error
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "reset token lookup failed, using memory fallback", "op", "get_reset_token", "err", err)
		cause, src = err, SourceFallback
		t, err = s.fallback.GetResetToken(ctx, s.key(token))
	}
	if err != nil {
		return Result[*domain.ResetToken]{Source: src, Err: cause}
	}
	if t.Expired(s.now()) {
		s.purgeToken(ctx, token)
		return Result[*domain.ResetToken]{Source: src, Err: cause}
	}
	return Result[*domain.ResetToken]{Value: t, Found: true, Source: src, Err: cause}
}

// DeleteResetToken removes a token. Deleting an unknown token is a no-op.
func (s *Store) DeleteResetToken(ctx context.Context, token string) error {
	if !s.MemoryOnly() {
		_ = s.fallback.DeleteResetToken(ctx, s.key(token))
	}
	if err := s.primary.DeleteResetToken(ctx, token); err != nil {
		return domain.NewStoreError(domain.StoreErrUnknown, s.primary.Name(), "delete reset token", err)
	}
	return nil
}

func (s *Store) purgeToken(ctx context.Context, token string) {
	if err := s.DeleteResetToken(ctx, token); err != nil {
		s.log.WarnContext(ctx, "could not purge expired reset token", "err", err)
	}
}

func (s *Store) key(k string) string {
	if n, ok := s.primary.(KeyNormalizer); ok {
		return n.Key(k)
	}
	return k
}

func (s *Store) mirrorUser(ctx context.Context, u *domain.User) {
	if s.MemoryOnly() || u == nil {
		return
	}
	_, _ = s.fallback.PutUser(ctx, u)
}
