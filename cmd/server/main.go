package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vendafacil/backend/internal/alerts"
	"vendafacil/backend/internal/config"
	"vendafacil/backend/internal/httpapi"
	"vendafacil/backend/internal/notify"
	"vendafacil/backend/internal/sales"
	"vendafacil/backend/internal/store"
	"vendafacil/backend/internal/store/memory"
	pgstore "vendafacil/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	if err := validateAuthConfig(cfg); err != nil {
		logger.Fatal("invalid auth configuration", zap.Error(err))
	}
	if cfg.AuthSecret == "" {
		logger.Warn("AUTH_SECRET not set, using the dev fallback; tokens will not survive restarts across instances")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var inv store.InventoryStore
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.InitSchema(ctx); err != nil {
			logger.Fatal("schema init failed", zap.Error(err))
		}
		inv = pg
		closers = append(closers, pg.Close)
		logger.Info("store: postgres")
	} else {
		inv = memory.NewSeeded()
		logger.Info("store: in-memory (seeded)")
	}

	broadcaster := notify.NewBroadcaster()
	notifier := notify.Notifier(broadcaster)
	if cfg.RedisAddr != "" {
		redisNotifier := notify.NewRedisNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "", logger)
		if err := redisNotifier.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, registration outcomes stay in-process", zap.Error(err))
		} else {
			notifier = notify.MultiNotifier{broadcaster, redisNotifier}
			closers = append(closers, redisNotifier.Close)
			logger.Info("notifications: redis pub/sub")
		}
	} else {
		logger.Info("notifications: in-process only")
	}

	registrar := sales.NewRegistrar(inv, notifier, cfg.TaxRatePercent, logger)
	alertEngine := alerts.NewEngine(inv, cfg.ExpiryWindowDays, cfg.LowStockThreshold, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, inv)
	api := httpapi.New(inv, registrar, alertEngine, auth, broadcaster, cfg.AllowedOrigin, logger)

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()
	go alertEngine.Run(engineCtx, time.Duration(cfg.AlertRecomputeSeconds)*time.Second)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Write timeout stays generous because the SSE streams hold
		// connections open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	engineCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// validateAuthConfig rejects a short explicit AUTH_SECRET. An empty secret is
// allowed for dev mode and falls back inside the auth manager.
func validateAuthConfig(cfg config.Config) error {
	if cfg.AuthSecret != "" && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters when set")
	}
	return nil
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("APP_ENV") == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
