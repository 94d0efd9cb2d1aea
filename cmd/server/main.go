package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gramdhan/ledger/internal/adapter/collaborator"
	httpAdapter "github.com/gramdhan/ledger/internal/adapter/http"
	"github.com/gramdhan/ledger/internal/adapter/http/handler"
	postgresRepo "github.com/gramdhan/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/gramdhan/ledger/internal/adapter/repository/redis"
	"github.com/gramdhan/ledger/internal/infrastructure/auth"
	"github.com/gramdhan/ledger/internal/infrastructure/config"
	"github.com/gramdhan/ledger/internal/infrastructure/eventpublisher"
	"github.com/gramdhan/ledger/internal/infrastructure/logger"
	"github.com/gramdhan/ledger/internal/infrastructure/metrics"
	"github.com/gramdhan/ledger/internal/infrastructure/postgres"
	"github.com/gramdhan/ledger/internal/infrastructure/redis"
	"github.com/gramdhan/ledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	groupRepo := postgresRepo.NewGroupRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize metrics and collaborators
	m := metrics.New()
	walletAllocator := collaborator.NewULIDWalletAllocator()
	authzGate := collaborator.NewTokenAuthorizationGate(appLogger)
	quoteFeed := collaborator.NewHTTPQuoteFeed(cfg.QuoteFeedURL, cfg.QuoteFeedTimeout)

	// Initialize use cases
	groupUC := usecase.NewSavingsGroupUseCase(txManager, groupRepo, cache, idGen, m, appLogger)
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, transactionRepo, outboxRepo, groupUC, walletAllocator, authzGate, idGen, m, appLogger)
	queryUC := usecase.NewQueryUseCase(accountRepo, transactionRepo, groupRepo, cache, appLogger)
	investUC := usecase.NewInvestmentUseCase(txManager, accountRepo, transactionRepo, outboxRepo, quoteFeed, authzGate, idGen, m, appLogger)
	reconUC := usecase.NewReconciliationUseCase(transactionRepo, groupRepo, appLogger)

	// Initialize handlers
	ledgerHandler := handler.NewLedgerHandler(ledgerUC, reconUC)
	groupHandler := handler.NewGroupHandler(groupUC, queryUC)
	queryHandler := handler.NewQueryHandler(queryUC)
	investmentHandler := handler.NewInvestmentHandler(investUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:     ledgerHandler,
		GroupHandler:      groupHandler,
		QueryHandler:      queryHandler,
		InvestmentHandler: investmentHandler,
		HealthHandler:     healthHandler,
		IdempotencyStore:  idempotencyStore,
		JWTManager:        auth.NewJWTManager(cfg.JWTSecret),
		Logger:            appLogger,
	})

	// Start the outbox publisher
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Notifier:   eventpublisher.NewLogNotifier(nil),
		Metrics:    m,
		BatchSize:  cfg.PublisherBatchSize,
		Interval:   cfg.PublisherInterval,
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && err != context.Canceled {
			appLogger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")
	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}
