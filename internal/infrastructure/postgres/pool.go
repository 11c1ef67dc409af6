package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edge-landings/api/internal/config"
)

// DSN returns the Postgres connection string for the configured project.
// SUPABASE_DB_URL wins; otherwise the direct-connection host of the Supabase
// project is derived from SUPABASE_URL with SUPABASE_KEY as the password.
func DSN(cfg *config.Config) (string, error) {
	if cfg.SupabaseDBURL != "" {
		return cfg.SupabaseDBURL, nil
	}
	u, err := url.Parse(cfg.SupabaseURL)
	if err != nil || u.Host == "" {
		return "", errors.New("parse SUPABASE_URL: invalid url")
	}
	ref, _, ok := strings.Cut(u.Hostname(), ".")
	if !ok || ref == "" {
		return "", fmt.Errorf("SUPABASE_URL host %q has no project ref", u.Hostname())
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword("postgres", cfg.SupabaseKey),
		Host:     "db." + ref + ".supabase.co:5432",
		Path:     "/postgres",
		RawQuery: "sslmode=require",
	}
	return dsn.String(), nil
}

// NewPool opens a pool and verifies it with a ping. The pool is closed when
// the ping fails.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pcfg.MaxConns = 10
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, classify("connect", err)
	}
	return pool, nil
}
