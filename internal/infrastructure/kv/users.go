package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/edge-landings/api/internal/domain"
)

// UserStore keeps each user as a JSON value under <prefix>user:<email> and
// indexes emails in the <prefix>users set. Reset tokens carry a native TTL.
type UserStore struct {
	client redis.UniversalClient
	prefix string
}

func NewUserStore(client redis.UniversalClient, prefix string) *UserStore {
	return &UserStore{client: client, prefix: prefix}
}

func (s *UserStore) Name() string { return backendName }

func (s *UserStore) Ping(ctx context.Context) error {
	return classify("ping", s.client.Ping(ctx).Err())
}

func (s *UserStore) userKey(email string) string { return s.prefix + "user:" + email }
func (s *UserStore) indexKey() string            { return s.prefix + "users" }
func (s *UserStore) tokenKey(token string) string {
	return s.prefix + "reset_token:" + token
}

func (s *UserStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	raw, err := s.client.Get(ctx, s.userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
		}
		return nil, classify("get user", err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "get user", err)
	}
	return &u, nil
}

func (s *UserStore) PutUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "set user", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.userKey(u.Email), raw, 0)
		p.SAdd(ctx, s.indexKey(), u.Email)
		return nil
	})
	if err != nil {
		return nil, classify("set user", err)
	}
	return u.Clone(), nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	emails, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, classify("list users", err)
	}
	if len(emails) == 0 {
		return nil, nil
	}
	sort.Strings(emails)
	keys := make([]string, len(emails))
	for i, e := range emails {
		keys[i] = s.userKey(e)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify("list users", err)
	}
	out := make([]*domain.User, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var u domain.User
		if err := json.Unmarshal([]byte(str), &u); err != nil {
			return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "list users", err)
		}
		out = append(out, &u)
	}
	return out, nil
}

type storedToken struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *UserStore) PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	raw, err := json.Marshal(storedToken{Email: t.Email, ExpiresAt: t.ExpiresAt})
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "set reset token", err)
	}
	// Redis rejects non-positive expirations.
	ttl := time.Until(t.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, s.tokenKey(t.Token), raw, ttl).Err(); err != nil {
		return nil, classify("set reset token", err)
	}
	c := *t
	return &c, nil
}

func (s *UserStore) GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("reset token: %w", domain.ErrNotFound)
		}
		return nil, classify("get reset token", err)
	}
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "get reset token", err)
	}
	return &domain.ResetToken{
		Token:         token,
		Email:         st.Email,
		ExpiresAt:     st.ExpiresAt,
		ExpiresAtUnix: st.ExpiresAt.Unix(),
	}, nil
}

func (s *UserStore) DeleteResetToken(ctx context.Context, token string) error {
	return classify("delete reset token", s.client.Del(ctx, s.tokenKey(token)).Err())
}
