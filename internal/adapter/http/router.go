package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gramdhan/ledger/internal/adapter/http/handler"
	"github.com/gramdhan/ledger/internal/adapter/http/middleware"
	"github.com/gramdhan/ledger/internal/infrastructure/auth"
	"github.com/gramdhan/ledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler     *handler.LedgerHandler
	GroupHandler      *handler.GroupHandler
	QueryHandler      *handler.QueryHandler
	InvestmentHandler *handler.InvestmentHandler
	HealthHandler     *handler.HealthHandler
	IdempotencyStore  usecase.IdempotencyStore
	JWTManager        *auth.JWTManager
	Logger            zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	// Health and observability endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTManager))

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Ledger operations
		r.Route("/ledger", func(r chi.Router) {
			r.Post("/deposits", cfg.LedgerHandler.Deposit)
			r.Post("/transfers", cfg.LedgerHandler.Transfer)
			r.Post("/contributions", cfg.LedgerHandler.Contribute)
			r.Get("/consistency", cfg.LedgerHandler.Consistency)
		})

		// Caller-scoped projections
		r.Get("/balance", cfg.QueryHandler.Balance)
		r.Get("/activity", cfg.QueryHandler.Activity)

		// Savings groups
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", cfg.GroupHandler.Create)
			r.Get("/", cfg.GroupHandler.List)
			r.Get("/{id}", cfg.GroupHandler.Get)
			r.Post("/{id}/join", cfg.GroupHandler.Join)
		})

		// Mutual-fund purchases
		r.Route("/investments", func(r chi.Router) {
			r.Post("/", cfg.InvestmentHandler.Buy)
			r.Post("/{id}/settle", cfg.InvestmentHandler.Settle)
		})
	})

	return r
}
