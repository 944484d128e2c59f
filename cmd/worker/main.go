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
	"github.com/gestao-cosmeticos/gestao/internal/app"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	jobmetrics "github.com/gestao-cosmeticos/gestao/internal/jobs"
	"github.com/gestao-cosmeticos/gestao/internal/platform/cache"
	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
	"github.com/gestao-cosmeticos/gestao/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(nil)
	analyticsRepo := analytics.NewRepository(pool)
	analyticsService := analytics.NewService(analyticsRepo, analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL), cfg.NearExpiryDays)

	stockJob := jobs.NewStockScanJob(analyticsRepo, inventory.NewPgLotStore(pool), logger, metrics, cfg.NearExpiryDays)
	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, logger, metrics)
	cleanupJob := jobs.NewCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)

	schedule, err := jobs.DefaultSchedule(time.Now().UTC())
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExpiryScan, Handler: stockJob.HandleExpiryScan},
			{Type: jobs.TaskStockReconcile, Handler: stockJob.HandleReconcile},
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := jobmetrics.NewServer(cfg.WorkerMetricsAddr, nil)
	go func() {
		logger.Info("starting metrics listener", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
