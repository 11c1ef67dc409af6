package userstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/domain"
)

// flakyBackend wraps Memory and fails every call while down is set.
type flakyBackend struct {
	*Memory
	down bool
	err  error
}

func newFlaky() *flakyBackend {
	return &flakyBackend{Memory: NewMemory(), err: errors.New("dial tcp: connection refused")}
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) GetUser(ctx context.Context, email string) (*domain.User, error) {
	if f.down {
		return nil, f.err
	}
	return f.Memory.GetUser(ctx, email)
}

func (f *flakyBackend) PutUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	if f.down {
		return nil, f.err
	}
	return f.Memory.PutUser(ctx, u)
}

func (f *flakyBackend) ListUsers(ctx context.Context) ([]*domain.User, error) {
	if f.down {
		return nil, f.err
	}
	return f.Memory.ListUsers(ctx)
}

func (f *flakyBackend) PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	if f.down {
		return nil, f.err
	}
	return f.Memory.PutResetToken(ctx, t)
}

func (f *flakyBackend) GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	if f.down {
		return nil, f.err
	}
	return f.Memory.GetResetToken(ctx, token)
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestGet_NeverWrittenIsAbsent(t *testing.T) {
	s := NewStore(nil, quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	r := s.Get(ctx, "nobody@example.com")
	assert.False(t, r.Found)
	assert.Nil(t, r.Value)
	assert.NoError(t, r.Err)
	assert.False(t, s.Exists(ctx, "nobody@example.com").Value)
	assert.True(t, s.MemoryOnly())
	assert.Equal(t, "memory", s.Backend())
}

func TestSetThenGet_RoundTrips(t *testing.T) {
	s := NewStore(nil, quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	_, err := s.Set(ctx, "a@b.com", &domain.User{ID: "1", PasswordHash: "h"})
	require.NoError(t, err)

	r := s.Get(ctx, "a@b.com")
	require.True(t, r.Found)
	assert.Equal(t, "a@b.com", r.Value.Email)
	assert.Equal(t, "h", r.Value.PasswordHash)
	assert.False(t, r.Value.CreatedAt.IsZero())
	assert.Equal(t, SourcePrimary, r.Source)
	assert.True(t, s.Exists(ctx, "a@b.com").Value)
}

func TestSet_OverwritesAndKeepsCreatedAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(nil, quietLogger(&bytes.Buffer{}), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first, err := s.Set(ctx, "a@b.com", &domain.User{PasswordHash: "old"})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = s.Set(ctx, "a@b.com", &domain.User{PasswordHash: "new", CreatedAt: first.CreatedAt})
	require.NoError(t, err)

	r := s.Get(ctx, "a@b.com")
	assert.Equal(t, "new", r.Value.PasswordHash)
	assert.Equal(t, first.CreatedAt, r.Value.CreatedAt)
	assert.Equal(t, now, r.Value.UpdatedAt)
	assert.Len(t, s.GetAll(ctx).Value, 1)
}

func TestSet_DoesNotAliasCallerRecord(t *testing.T) {
	s := NewStore(nil, quietLogger(&bytes.Buffer{}))
	ctx := context.Background()
	u := &domain.User{PasswordHash: "h", Profile: &domain.Profile{Plan: "starter"}}

	_, err := s.Set(ctx, "a@b.com", u)
	require.NoError(t, err)
	u.Profile.Plan = "mutated"

	assert.Equal(t, "starter", s.Get(ctx, "a@b.com").Value.Profile.Plan)
}

func TestGet_BackendDownUsesFallback(t *testing.T) {
	var logs bytes.Buffer
	b := newFlaky()
	s := NewStore(b, quietLogger(&logs))
	ctx := context.Background()

	_, err := s.Set(ctx, "a@b.com", &domain.User{PasswordHash: "h"})
	require.NoError(t, err)

	b.down = true
	r := s.Get(ctx, "a@b.com")
	assert.True(t, r.Found)
	assert.Equal(t, SourceFallback, r.Source)
	assert.ErrorIs(t, r.Err, b.err)
	assert.Equal(t, "h", r.Value.PasswordHash)
	assert.Contains(t, logs.String(), "using memory fallback")

	miss := s.Get(ctx, "other@b.com")
	assert.False(t, miss.Found)
	assert.Equal(t, SourceFallback, miss.Source)

	all := s.GetAll(ctx)
	assert.Equal(t, SourceFallback, all.Source)
	assert.Contains(t, all.Value, "a@b.com")
}

func TestGet_HybridBackendDownFindsNormalizedKey(t *testing.T) {
	b := newFlaky()
	s := NewStore(NewSanitizing(b), quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	_, err := s.Set(ctx, "josé@b.com", &domain.User{PasswordHash: "$2a$10$abcdefghijklmnopqrstuv"})
	require.NoError(t, err)

	up := s.Get(ctx, "josé@b.com")
	require.True(t, up.Found)
	assert.Equal(t, SourcePrimary, up.Source)

	b.down = true
	down := s.Get(ctx, "josé@b.com")
	assert.True(t, down.Found)
	assert.Equal(t, SourceFallback, down.Source)
	assert.Equal(t, "jose@b.com", down.Value.Email)
	assert.True(t, s.Exists(ctx, "josé@b.com").Value)
}

func TestSet_BackendDownFailsHard(t *testing.T) {
	b := newFlaky()
	b.down = true
	s := NewStore(b, quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	_, err := s.Set(ctx, "a@b.com", &domain.User{PasswordHash: "h"})
	require.Error(t, err)
	var se *domain.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.StoreErrUnknown, se.Kind)

	// Not mirrored.
	_, ferr := s.fallback.GetUser(ctx, "a@b.com")
	assert.ErrorIs(t, ferr, domain.ErrNotFound)
	assert.False(t, s.Get(ctx, "a@b.com").Found)
}

func TestSet_KeepsBackendClassification(t *testing.T) {
	b := newFlaky()
	b.down = true
	b.err = domain.NewStoreError(domain.StoreErrPermission, "flaky", "set user", errors.New("rls"))
	s := NewStore(b, quietLogger(&bytes.Buffer{}))

	_, err := s.Set(context.Background(), "a@b.com", &domain.User{})
	assert.Equal(t, domain.StoreErrPermission, domain.StoreErrorKindOf(err))
}

func TestResetToken_LazyExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := newFlaky()
	s := NewStore(b, quietLogger(&bytes.Buffer{}), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := s.SetResetToken(ctx, "tok", "a@b.com", now.Add(time.Hour))
	require.NoError(t, err)

	r := s.GetResetToken(ctx, "tok")
	require.True(t, r.Found)
	assert.Equal(t, "a@b.com", r.Value.Email)

	now = now.Add(2 * time.Hour)
	r = s.GetResetToken(ctx, "tok")
	assert.False(t, r.Found)
	assert.NoError(t, r.Err)

	_, err = b.Memory.GetResetToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired token purged from backend")
	_, err = s.fallback.GetResetToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired token purged from fallback")

	r = s.GetResetToken(ctx, "tok")
	assert.False(t, r.Found)
	assert.NoError(t, r.Err)
}

func TestResetToken_ExpiryBoundary(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(nil, quietLogger(&bytes.Buffer{}), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := s.SetResetToken(ctx, "tok", "a@b.com", now)
	require.NoError(t, err)
	assert.False(t, s.GetResetToken(ctx, "tok").Found)
}

func TestResetToken_FallbackWhenBackendDown(t *testing.T) {
	b := newFlaky()
	s := NewStore(b, quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	_, err := s.SetResetToken(ctx, "tok", "a@b.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	b.down = true
	r := s.GetResetToken(ctx, "tok")
	assert.True(t, r.Found)
	assert.Equal(t, SourceFallback, r.Source)

	_, err = s.SetResetToken(ctx, "tok2", "a@b.com", time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestDeleteResetToken_UnknownIsNoop(t *testing.T) {
	s := NewStore(newFlaky(), quietLogger(&bytes.Buffer{}))
	assert.NoError(t, s.DeleteResetToken(context.Background(), "never-issued"))
}

func TestSanitizing_StoresASCII(t *testing.T) {
	inner := NewMemory()
	s := NewStore(NewSanitizing(inner), quietLogger(&bytes.Buffer{}))
	ctx := context.Background()

	_, err := s.Set(ctx, "a@b.com", &domain.User{
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Profile:      &domain.Profile{Activity: []domain.ActivityEntry{{Message: "café — “news”"}}},
	})
	require.NoError(t, err)

	stored, err := inner.GetUser(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, `cafe - "news"`, stored.Profile.Activity[0].Message)
	assert.Equal(t, "hybrid", s.Backend())
}

func TestSanitizing_RejectsCorruptHash(t *testing.T) {
	s := NewStore(NewSanitizing(NewMemory()), quietLogger(&bytes.Buffer{}))

	_, err := s.Set(context.Background(), "a@b.com", &domain.User{PasswordHash: "ééééé"})
	assert.Equal(t, domain.StoreErrEncoding, domain.StoreErrorKindOf(err))
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"nothing configured", config.Config{}, BackendMemory},
		{"relational sanitized", config.Config{SupabaseURL: "u", SupabaseKey: "k", StoreSanitize: true}, BackendHybrid},
		{"relational raw", config.Config{SupabaseURL: "u", SupabaseKey: "k"}, BackendPostgres},
		{"relational wins over kv", config.Config{SupabaseURL: "u", SupabaseKey: "k", KVURL: "redis://x"}, BackendPostgres},
		{"dynamo before kv", config.Config{DynamoTables: config.DynamoTables{Users: "users"}, KVURL: "redis://x"}, BackendDynamo},
		{"kv", config.Config{KVRestURL: "https://x", KVRestToken: "t"}, BackendKV},
		{"url without key", config.Config{SupabaseURL: "u"}, BackendMemory},
		{"forced", config.Config{SupabaseURL: "u", SupabaseKey: "k", StoreBackend: "memory"}, BackendMemory},
		{"unknown override ignored", config.Config{StoreBackend: "mongo", KVURL: "redis://x"}, BackendKV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Choose(&tt.cfg))
		})
	}
}

func TestOpen_FailedBackendRunsMemoryOnly(t *testing.T) {
	var logs bytes.Buffer
	cfg := &config.Config{StoreBackend: BackendKV, KVURL: "not a url"}

	s, closeFn := Open(context.Background(), cfg, quietLogger(&logs))
	defer closeFn()

	assert.True(t, s.MemoryOnly())
	assert.Contains(t, logs.String(), "running memory-only")
}
