package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edge-landings/api/internal/domain"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// UserStore persists users and reset tokens in Postgres.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Name() string { return backendName }

func (s *UserStore) Ping(ctx context.Context) error {
	return classify("ping", s.db.Ping(ctx))
}

const selectUser = `SELECT email, id, password_hash, COALESCE(customer_id, ''), COALESCE(profile, 'null'::jsonb), created_at, updated_at FROM users`

func (s *UserStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
		}
		return nil, classify("get user", err)
	}
	return u, nil
}

func (s *UserStore) PutUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "set user", err)
	}
	const q = `INSERT INTO users (email, id, password_hash, customer_id, profile, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			id = EXCLUDED.id,
			password_hash = EXCLUDED.password_hash,
			customer_id = EXCLUDED.customer_id,
			profile = EXCLUDED.profile,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.Exec(ctx, q, u.Email, u.ID, u.PasswordHash, u.CustomerID, profile, u.CreatedAt, u.UpdatedAt); err != nil {
		return nil, classify("set user", err)
	}
	return u.Clone(), nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.Query(ctx, selectUser+` ORDER BY email`)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("list users", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}
	return out, nil
}

func (s *UserStore) PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	const q = `INSERT INTO reset_tokens (token, email, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET email = EXCLUDED.email, expires_at = EXCLUDED.expires_at`
	if _, err := s.db.Exec(ctx, q, t.Token, t.Email, t.ExpiresAt); err != nil {
		return nil, classify("set reset token", err)
	}
	c := *t
	return &c, nil
}

func (s *UserStore) GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	const q = `SELECT token, email, expires_at FROM reset_tokens WHERE token = $1`
	var t domain.ResetToken
	if err := s.db.QueryRow(ctx, q, token).Scan(&t.Token, &t.Email, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reset token: %w", domain.ErrNotFound)
		}
		return nil, classify("get reset token", err)
	}
	t.ExpiresAtUnix = t.ExpiresAt.Unix()
	return &t, nil
}

func (s *UserStore) DeleteResetToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM reset_tokens WHERE token = $1`, token)
	return classify("delete reset token", err)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u       domain.User
		profile []byte
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&u.Email, &u.ID, &u.PasswordHash, &u.CustomerID, &profile, &created, &updated); err != nil {
		return nil, err
	}
	if len(profile) > 0 && string(profile) != "null" {
		var p domain.Profile
		if err := json.Unmarshal(profile, &p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		u.Profile = &p
	}
	u.CreatedAt, u.UpdatedAt = created.UTC(), updated.UTC()
	return &u, nil
}
