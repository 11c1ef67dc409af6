package userstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/infrastructure/dynamo"
	"github.com/edge-landings/api/internal/infrastructure/kv"
	"github.com/edge-landings/api/internal/infrastructure/postgres"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendHybrid   = "hybrid"
	BackendKV       = "kv"
	BackendDynamo   = "dynamo"
)

// Choose returns the backend name selected by cfg without connecting.
func Choose(cfg *config.Config) string {
	switch cfg.StoreBackend {
	case BackendMemory, BackendPostgres, BackendHybrid, BackendKV, BackendDynamo:
		return cfg.StoreBackend
	}
	switch {
	case cfg.RelationalConfigured():
		if cfg.StoreSanitize {
			return BackendHybrid
		}
		return BackendPostgres
	case cfg.DynamoConfigured():
		return BackendDynamo
	case cfg.KVConfigured():
		return BackendKV
	}
	return BackendMemory
}

// Open selects, connects and wraps the configured backend. It never fails: a
// backend that cannot be initialized is logged and the store runs memory-only.
// The returned func releases backend connections.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, func()) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.StoreBackend != "" && Choose(cfg) != cfg.StoreBackend {
		log.Warn("unknown STORE_BACKEND, using automatic selection", "store_backend", cfg.StoreBackend)
	}
	name := Choose(cfg)
	backend, closeFn, err := connect(ctx, cfg, name, log)
	if err != nil {
		log.Warn("user store backend unavailable, running memory-only", "backend", name, "err", err)
		return NewStore(nil, log), func() {}
	}
	log.Info("user store ready", "backend", name)
	return NewStore(backend, log), closeFn
}

func connect(ctx context.Context, cfg *config.Config, name string, log *slog.Logger) (Backend, func(), error) {
	noop := func() {}
	switch name {
	case BackendPostgres, BackendHybrid:
		dsn, err := postgres.DSN(cfg)
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		var b Backend = postgres.NewUserStore(pool)
		if name == BackendHybrid {
			b = NewSanitizing(b)
		}
		return b, pool.Close, nil
	case BackendKV:
		client, err := kv.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewUserStore(client, cfg.KVKeyPrefix), func() { _ = client.Close() }, nil
	case BackendDynamo:
		if !cfg.DynamoConfigured() {
			return nil, nil, errors.New("DYNAMO_TABLE_USERS is not set")
		}
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AWSEndpointURL != "" {
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		}
		store := dynamo.NewUserStore(client, cfg.DynamoTables)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
	return nil, noop, nil
}
