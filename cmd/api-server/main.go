package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/turnitos/turnitos-backend/internal/api"
	"github.com/turnitos/turnitos-backend/internal/auth"
	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
	"github.com/turnitos/turnitos-backend/internal/config"
	"github.com/turnitos/turnitos-backend/internal/db"
	"github.com/turnitos/turnitos-backend/internal/lock"
	"github.com/turnitos/turnitos-backend/internal/logging"
	"github.com/turnitos/turnitos-backend/internal/notify"
	"github.com/turnitos/turnitos-backend/internal/redisclient"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.Env)
	defer logger.Sync()

	logger.Info("api-server starting",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool, cfg.MigrationsDir); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	logger.Info("migrations applied")

	rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	bookingStore := booking.NewPgStore(pgPool)
	businessStore := business.NewPgStore(pgPool)

	var mailer notify.Mailer
	if cfg.SendGridKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridKey, cfg.FromName, cfg.FromEmail, logger)
	} else {
		mailer = notify.NewLogMailer(logger)
	}

	businesses := business.NewManager(businessStore, cfg.TrialDays, logger)
	calendar := booking.NewCalendar(bookingStore, logger)
	catalog := booking.NewCatalog(bookingStore, logger)
	resolver := booking.NewResolver(bookingStore)
	notifier := notify.NewBookingNotifier(mailer, businessStore, logger)
	locker := lock.NewRedisLocker(rdb, cfg.LockTTL)
	coordinator := booking.NewCoordinator(bookingStore, businesses, locker, resolver, notifier, logger)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	handlers := api.NewHandlers(businesses, calendar, catalog, resolver, coordinator, tokens, logger)
	router := api.NewRouter(api.RouterConfig{
		Handlers: handlers,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
