package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	analytichttp "github.com/gestao-cosmeticos/gestao/internal/analytics/http"
	"github.com/gestao-cosmeticos/gestao/internal/app"
	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/finance"
	"github.com/gestao-cosmeticos/gestao/internal/observability"
	"github.com/gestao-cosmeticos/gestao/internal/platform/cache"
	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/procurement"
	"github.com/gestao-cosmeticos/gestao/internal/sales"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
	"github.com/gestao-cosmeticos/gestao/jobs"
	"github.com/gestao-cosmeticos/gestao/migrations"
	"github.com/gestao-cosmeticos/gestao/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		applied, err := migrations.Apply(ctx, dbpool)
		if err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", slog.Any("files", applied))
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	productLocker := shared.NewProductLocker(redisClient, cfg.StockLockTTL)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), auditLogger, logger)
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), auditLogger, metrics, logger)
	salesService := sales.NewService(sales.NewRepository(dbpool),
		sales.WithLocker(productLocker),
		sales.WithIdempotency(idempotencyStore),
		sales.WithAudit(auditLogger),
		sales.WithMetrics(metrics),
		sales.WithLogger(logger),
	)
	financeService := finance.NewService(finance.NewRepository(dbpool), auditLogger, logger)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("analytics invalidation listener", slog.Any("error", err))
	}
	analyticsService := analytics.NewService(analytics.NewRepository(dbpool), analyticsCache, cfg.NearExpiryDays)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	if _, err := jobClient.EnqueueWarmup(ctx); err != nil {
		logger.Warn("enqueue analytics warmup", slog.Any("error", err))
	}

	invoiceRenderer, err := report.NewInvoiceRenderer(cfg.StoreName)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}
	var pdfClient *report.Client
	if cfg.GotenbergURL != "" {
		pdfClient = report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
		if err := pdfClient.Ping(ctx); err != nil {
			logger.Warn("gotenberg unavailable, invoice pdf will fail until it is up", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalog.NewHandler(logger, catalogService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		SalesHandler:       sales.NewHandler(logger, salesService),
		FinanceHandler:     finance.NewHandler(logger, financeService),
		AnalyticsHandler:   analytichttp.NewHandler(logger, analyticsService, cfg.ExportLimit),
		ReportCache:        analyticsService,
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
		InvoiceHandler:     report.NewHandler(pdfClient, invoiceRenderer, salesService, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
