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

	"github.com/bygghuset-as/procurement-api/internal/cache"
	"github.com/bygghuset-as/procurement-api/internal/config"
	"github.com/bygghuset-as/procurement-api/internal/http/handler"
	"github.com/bygghuset-as/procurement-api/internal/http/middleware"
	"github.com/bygghuset-as/procurement-api/internal/http/router"
	"github.com/bygghuset-as/procurement-api/internal/jobs"
	"github.com/bygghuset-as/procurement-api/internal/logger"
	"github.com/bygghuset-as/procurement-api/internal/remote"
	"github.com/bygghuset-as/procurement-api/internal/storage"
	"github.com/bygghuset-as/procurement-api/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Open the local cache database
	cacheDB, err := cache.Open(&cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := cache.Migrate(cacheDB); err != nil {
		return fmt.Errorf("failed to migrate cache database: %w", err)
	}
	documentCache := cache.New(cacheDB, log)

	// Remote document API client
	remoteClient, err := remote.NewClient(&cfg.RemoteAPI, log)
	if err != nil {
		return fmt.Errorf("failed to create remote client: %w", err)
	}

	// Attachment transport
	uploader, err := storage.NewUploader(&cfg.Storage, remoteClient, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Document reconciliation stores
	purchaseOrderStore := store.NewPurchaseOrderStore(remoteClient, documentCache, uploader, remoteClient, log)
	changeOrderStore := store.NewChangeOrderStore(remoteClient, documentCache, uploader, log)

	// Initialize middleware
	corporationFilter := middleware.NewCorporationFilterMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	purchaseOrderHandler := handler.NewPurchaseOrderHandler(purchaseOrderStore, log)
	changeOrderHandler := handler.NewChangeOrderHandler(changeOrderStore, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		cacheDB,
		remoteClient,
		corporationFilter,
		rateLimiter,
		purchaseOrderHandler,
		changeOrderHandler,
	)

	// Background cache refresh keeps the fallback copies fresh
	var scheduler *jobs.Scheduler
	if cfg.Jobs.CacheRefreshEnabled {
		scheduler = jobs.NewScheduler(log)
		refreshJob := jobs.NewCacheRefreshJob(documentCache, purchaseOrderStore, changeOrderStore, log, jobs.DefaultRefreshTimeout)
		if err := scheduler.AddJob(jobs.CacheRefreshJobName, cfg.Jobs.CacheRefreshCron, refreshJob.Run); err != nil {
			log.Error("Failed to register cache refresh job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with cache refresh job",
				zap.String("cron_expr", cfg.Jobs.CacheRefreshCron),
			)
		}
	} else {
		log.Info("Cache refresh disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("Server stopped")
	}

	return nil
}
