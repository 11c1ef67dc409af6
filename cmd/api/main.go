package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/edge-landings/api/internal/config"
	anthropicinfra "github.com/edge-landings/api/internal/infrastructure/anthropic"
	jwtinfra "github.com/edge-landings/api/internal/infrastructure/jwt"
	"github.com/edge-landings/api/internal/infrastructure/kv"
	"github.com/edge-landings/api/internal/infrastructure/mail"
	stripeinfra "github.com/edge-landings/api/internal/infrastructure/stripe"
	"github.com/edge-landings/api/internal/logging"
	transporthttp "github.com/edge-landings/api/internal/transport/http"
	"github.com/edge-landings/api/internal/userstore"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logging.New("edge-landings-api", cfg.LogLevel)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}
	for _, w := range cfg.Warnings() {
		log.Warn("configuration warning", "detail", w)
	}

	ctx := context.Background()

	store, closeStore := userstore.Open(ctx, cfg, log)
	defer closeStore()

	// JWT provider (optional, graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Warn("JWT provider not available, login returns no session token", "err", err)
	}

	var stripeClient *stripeinfra.Client
	if cfg.StripeSecretKey != "" {
		stripeClient = stripeinfra.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY is not set, billing endpoints are disabled")
	}

	var claude *anthropicinfra.Client
	if cfg.AnthropicAPIKey != "" {
		claude = anthropicinfra.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		log.Warn("ANTHROPIC_API_KEY is not set, Claude assistant endpoint is disabled")
	}

	var limiterRedis redis.UniversalClient
	if cfg.KVConfigured() {
		if c, err := kv.NewClient(ctx, cfg); err == nil {
			limiterRedis = c
			defer c.Close()
		} else {
			log.Warn("redis unavailable, rate limiting per instance", "err", err)
		}
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Store:          store,
		Mailer:         mail.NewMailer(cfg, log),
		JWTProvider:    jwtProvider,
		Stripe:         stripeClient,
		Claude:         claude,
		RateLimitRedis: limiterRedis,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store_backend", store.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
		return
	}
	log.Info("server stopped")
}
