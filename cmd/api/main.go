package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildmint/config"
	httpHandler "guildmint/internal/adapter/http/handler"
	"guildmint/internal/adapter/platform"
	pgStorage "guildmint/internal/adapter/storage/postgres"
	redisStorage "guildmint/internal/adapter/storage/redis"
	"guildmint/internal/core/ports"
	"guildmint/internal/service"
	"guildmint/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Guildmint ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	groupRepo := pgStorage.NewGroupRepo(pool)
	currencyRepo := pgStorage.NewCurrencyRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	noteRepo := pgStorage.NewNoteRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis fast-path guard for note redemption
	noteLock := redisStorage.NewNoteLock(rdb)

	// Platform integration (member sync, operator alerts)
	chat := platform.NewClient(cfg.Platform, log)

	// Audit queue: staging buffer in front of the durable sink
	auditQueue := service.NewAuditQueue(
		auditRepo, chat,
		cfg.Audit.FlushInterval, cfg.Audit.BatchSize, cfg.Audit.BacklogThreshold,
		log,
	)
	auditQueue.Start(ctx)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTNoteTokenService(cfg.Note.Secret, cfg.Note.Issuer)
	exchangeEngine := service.NewExchangeEngine(rateRepo)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(
		accountRepo, currencyRepo, walletRepo,
		exchangeEngine, transactor, auditQueue, log,
	)
	noteSvc := service.NewNoteService(
		accountRepo, currencyRepo, walletRepo, noteRepo,
		tokenSvc, noteLock, cfg.Note.LockTTL, transactor, auditQueue, log,
	)
	registrySvc := service.NewRegistryService(groupRepo, currencyRepo, rateRepo, transactor, log)
	identitySvc := service.NewIdentityService(accountRepo, groupRepo, transactor, chat, log)
	leaderboardSvc := service.NewLeaderboardService(currencyRepo, walletRepo, rateRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		NoteSvc:        noteSvc,
		RegistrySvc:    registrySvc,
		IdentitySvc:    identitySvc,
		LeaderboardSvc: leaderboardSvc,
		HashSvc:        hashSvc,
		AdminKeyHash:   cfg.Admin.APIKeyHash,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain staged audit events before the process exits.
	if err := auditQueue.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Audit queue did not drain cleanly")
	}

	log.Info().Msg("Server exited")
}
