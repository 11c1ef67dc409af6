// Command migrate applies the relational user-store schema.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/infrastructure/postgres"
	"github.com/edge-landings/api/internal/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New("edge-landings-migrate", cfg.LogLevel)

	dsn, err := postgres.DSN(cfg)
	if err != nil {
		log.Error("no relational database configured", "err", err)
		os.Exit(1)
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Error("connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log); err != nil {
		log.Error("migration failed", "err", err)
		pool.Close()
		os.Exit(1)
	}
	log.Info("migrations applied")
}
