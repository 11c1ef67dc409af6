package kv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/edge-landings/api/internal/config"
)

// Options builds redis client options. KV_URL is used as-is; otherwise the
// Redis endpoint behind KV_REST_API_URL is addressed over TLS on 6379 with
// the REST token as password.
func Options(cfg *config.Config) (*redis.Options, error) {
	if cfg.KVURL != "" {
		opts, err := redis.ParseURL(cfg.KVURL)
		if err != nil {
			return nil, fmt.Errorf("parse KV_URL: %w", err)
		}
		return opts, nil
	}
	u, err := url.Parse(cfg.KVRestURL)
	if err != nil || u.Hostname() == "" {
		return nil, errors.New("parse KV_REST_API_URL: invalid url")
	}
	return &redis.Options{
		Addr:      u.Hostname() + ":6379",
		Username:  "default",
		Password:  cfg.KVRestToken,
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()},
	}, nil
}

// NewClient connects and pings the keyed store.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, classify("connect", err)
	}
	return client, nil
}
