package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/app"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/auth"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/catalog"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/inventory"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/invoices"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/labels"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/media"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/observability"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/cache"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/sales"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/showcase"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/jobs"
)

const mediaPrefix = "/media"

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", slog.Any("versions", applied))
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "storefront_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	ledger := inventory.NewLedger(inventory.NewAlertEngine(inventory.AlertConfig{RefreshSnapshot: cfg.AlertRefreshSnapshot}))
	inventoryService := inventory.NewService(inventory.NewRepository(pool), ledger, auditLogger, metrics, logger)
	salesService := sales.NewService(sales.NewRepository(pool), ledger, auditLogger, metrics, logger, loc)

	assets, err := media.NewLocalStore(cfg.UploadDir, mediaPrefix)
	if err != nil {
		return err
	}
	showcaseRepo := showcase.NewRepository(pool)
	linker := showcase.NewLinker(showcaseRepo, logger, metrics, showcase.LinkerConfig{LooseMinDigits: cfg.IMEILooseMinDigits})
	showcaseService := showcase.NewService(showcaseRepo, assets, auditLogger, logger)
	invoiceService := invoices.NewService(invoices.NewRepository(pool), linker, auditLogger, logger, loc)

	catalogCache := cache.NewVersioned(redisClient, "catalog", cfg.CatalogCacheTTL)
	catalogService := catalog.NewService(catalog.NewRepository(pool), catalogCache, auditLogger, logger)

	redisConn := redisOpts(cfg)
	jobClient := jobs.NewClient(redisConn)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisConn)
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		Metrics:          metrics,
		Database:         pool,
		AuthHandler:      auth.NewHandler(logger, auth.NewService(cfg.AdminPasswordHash), sessionManager, auditLogger),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		SalesHandler:     sales.NewHandler(logger, salesService, idempotency),
		ShowcaseHandler:  showcase.NewHandler(logger, showcaseService, linker),
		InvoicesHandler:  invoices.NewHandler(logger, invoiceService),
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		MediaHandler:     media.NewHandler(logger, assets),
		LabelsHandler:    labels.NewHandler(logger, jobClient),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
