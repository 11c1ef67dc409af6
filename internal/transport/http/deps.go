package http

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	anthropicinfra "github.com/edge-landings/api/internal/infrastructure/anthropic"
	jwtinfra "github.com/edge-landings/api/internal/infrastructure/jwt"
	"github.com/edge-landings/api/internal/infrastructure/mail"
	stripeinfra "github.com/edge-landings/api/internal/infrastructure/stripe"
	"github.com/edge-landings/api/internal/userstore"
)

// Deps holds all infrastructure dependencies for the router. Every field but
// Store may be nil; the features behind a nil field answer 503 or fall back.
type Deps struct {
	Store       *userstore.Store
	Mailer      mail.Mailer
	JWTProvider *jwtinfra.Provider
	Stripe      *stripeinfra.Client
	Claude      *anthropicinfra.Client
	// RateLimitRedis shares rate-limit counters between instances.
	RateLimitRedis redis.UniversalClient
	Logger         *slog.Logger
}
