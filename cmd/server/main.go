package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/imadial/internal/api"
	"github.com/Harshitk-cp/imadial/internal/config"
	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/manager"
	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/Harshitk-cp/imadial/internal/policy"
	"github.com/Harshitk-cp/imadial/internal/service"
	"github.com/Harshitk-cp/imadial/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	cfg, err := ontology.LoadManagerConfig(config.ManagerConfigPath())
	if err != nil {
		logger.Fatal("failed to load manager config", zap.String("path", config.ManagerConfigPath()), zap.Error(err))
	}

	portal, err := manager.NewPortal(cfg, policy.DefaultRegistry(), logger)
	if err != nil {
		logger.Fatal("failed to build dialogue manager", zap.Error(err))
	}
	logger.Info("dialogue manager ready",
		zap.String("policy", portal.PolicyName()),
		zap.Strings("slots", portal.Ontology().SlotNames()),
	)

	ctx := context.Background()

	var (
		sessions domain.SessionStore
		turns    domain.TurnStore
		pinger   api.Pinger
	)

	switch config.SessionStore() {
	case config.StorePostgres:
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is required for the postgres session store")
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}

		sessions = store.NewSessionStore(pool)
		turns = store.NewTurnStore(pool)
		pinger = pool
	default:
		mem := store.NewMemorySessionStore()
		sessions, turns = mem, mem
		logger.Warn("using in-memory session store; sessions are lost on restart")
	}

	sessionSvc := service.NewSessionService(sessions, turns, portal, logger.Named("sessions"))
	sessionSvc.SetCacheSize(config.SessionCacheSize())
	sessionSvc.SetObserveTTL(config.SessionObserveTTL())

	app := api.NewApp(pinger, sessionSvc, api.Options{
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		PolicyName:     portal.PolicyName(),
	}, logger)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
