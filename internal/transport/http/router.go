package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/edge-landings/api/internal/application/account"
	"github.com/edge-landings/api/internal/application/assistant"
	"github.com/edge-landings/api/internal/application/billing"
	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/transport/http/handler"
	appmiddleware "github.com/edge-landings/api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.NoCacheHTML)

	// 10 requests per minute per client on the credential endpoints.
	var sensitiveRL appmiddleware.Limiter
	if deps.RateLimitRedis != nil {
		sensitiveRL = appmiddleware.NewRedisLimiter(deps.RateLimitRedis, cfg.KVKeyPrefix, 10, time.Minute, log)
	} else {
		sensitiveRL = appmiddleware.NewRateLimiter(rate.Every(6*time.Second), 10)
	}

	accountDeps := account.ServiceDeps{
		Store:         deps.Store,
		Mailer:        deps.Mailer,
		SiteURL:       cfg.SiteURL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		Logger:        log,
	}
	billingDeps := billing.ServiceDeps{Store: deps.Store, SiteURL: cfg.SiteURL, Logger: log}
	if deps.Stripe != nil {
		accountDeps.Customers = deps.Stripe
		billingDeps.Billing = deps.Stripe
	}
	if deps.JWTProvider != nil {
		accountDeps.JWTProvider = deps.JWTProvider
	}
	assistantDeps := assistant.ServiceDeps{Logger: log}
	if deps.Claude != nil {
		assistantDeps.Client = deps.Claude
	}

	healthH := handler.NewHealthHandler()
	storeH := handler.NewStoreHandler(deps.Store)
	accountH := handler.NewAccountHandler(account.NewService(accountDeps))
	billingH := handler.NewBillingHandler(billing.NewService(billingDeps), cfg.SiteURL)
	assistantH := handler.NewAssistantHandler(assistant.NewService(assistantDeps))

	r.Get("/health", healthH.Health)
	r.Post("/webhook", billingH.Webhook)
	r.Post("/create-checkout-session", billingH.CreateCheckoutSession)
	r.Post("/create-portal-session", billingH.CreatePortalSession)

	r.Route("/api", func(r chi.Router) {
		r.Get("/test", healthH.Test)
		r.Post("/test", healthH.Test)
		r.Get("/check-db", storeH.CheckDB)

		r.With(sensitiveRL.Limit).Post("/signup", accountH.Signup)
		r.With(sensitiveRL.Limit).Post("/login", accountH.Login)
		r.With(sensitiveRL.Limit).Post("/forgot-password", accountH.ForgotPassword)
		r.With(sensitiveRL.Limit).Post("/reset-password", accountH.ResetPassword)

		if deps.JWTProvider != nil {
			r.With(appmiddleware.Auth(deps.JWTProvider)).Get("/me", accountH.Me)
		}
		r.With(appmiddleware.OptionalAuth(deps.JWTProvider)).Post("/dashboard", billingH.Dashboard)
		r.Post("/claude", assistantH.Chat)

		if !cfg.IsProduction() {
			r.Post("/test-signup", storeH.TestSignup)
			r.Get("/users", storeH.ListUsers)
		}
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
