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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/aggregate"
	"billing-admin-backend/internal/alert"
	"billing-admin-backend/internal/api"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/db"
	"billing-admin-backend/internal/notification"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/offline"
	"billing-admin-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, syncLogger := observe.NewLogger(cfg.Log)
	defer syncLogger()
	logger.Info("configuration loaded", zap.String("path", configPath))

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := db.Init(&cfg.Database, logger, cfg.Server.Debug)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	seeded, err := db.SeedAdmin(ctx, gormDB, cfg.Auth.BootstrapAdmin, hasher)
	if err != nil {
		logger.Fatal("failed to seed bootstrap admin", zap.Error(err))
	}
	if seeded {
		logger.Info("bootstrap admin created", zap.String("username", cfg.Auth.BootstrapAdmin.Username))
	}

	appStore := store.NewGormStore(gormDB)
	recorder := observe.NewZapRecorder(logger)
	tokens := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	creds := auth.NewCredentialStore(appStore, hasher)

	var (
		notifier       alert.Notifier
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatal("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
		pool.Start(ctx)
		notifier = pool
		logger.Info("notification worker pool started", zap.Int("size", cfg.WorkerPool.Size))
	}

	thresholds := alert.Thresholds{
		SyncDelay:    time.Duration(cfg.Alerts.SyncDelayMinutes) * time.Minute,
		OfflineGrace: time.Duration(cfg.Alerts.OfflineGraceHours) * time.Hour,
	}

	router := api.NewRouter(api.Options{
		Config:    cfg,
		Store:     appStore,
		Tokens:    tokens,
		Creds:     creds,
		Hasher:    hasher,
		Alerts:    alert.NewEngine(appStore, thresholds, recorder, notifier, logger),
		Aggregate: aggregate.NewEngine(appStore, cfg.Server.Location),
		Sync:      offline.NewCoordinator(appStore, recorder, logger),
		Recorder:  recorder,
		Logger:    logger,
		Webpush:   webpushOptions,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port), zap.String("prefix", cfg.Server.APIPrefix))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	cancel()

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}
