package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	jobmetrics "github.com/gestao-cosmeticos/gestao/internal/jobs"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// ReportWarmer is the slice of the analytics service the warmup needs.
type ReportWarmer interface {
	Invalidate(ctx context.Context) error
	Dashboard(ctx context.Context, period shared.Period) (analytics.Dashboard, error)
	CurrentMonth(ctx context.Context) (analytics.MonthSummary, error)
	Alerts(ctx context.Context) (analytics.Alerts, error)
}

// AnalyticsWarmupJob pre-populates the report cache.
type AnalyticsWarmupJob struct {
	Analytics ReportWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(svc ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{Analytics: svc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAnalyticsWarmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskAnalyticsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	if payload.Invalidate {
		if err := j.Analytics.Invalidate(ctx); err != nil {
			logger.Error("invalidate reports", slog.Any("error", err))
			return err
		}
	}

	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if _, err := j.Analytics.Dashboard(warmCtx, shared.AllTime()); err != nil {
		logger.Error("warm dashboard", slog.Any("error", err))
		return err
	}
	if _, err := j.Analytics.CurrentMonth(warmCtx); err != nil {
		logger.Error("warm current month", slog.Any("error", err))
		return err
	}
	if _, err := j.Analytics.Alerts(warmCtx); err != nil {
		logger.Error("warm alerts", slog.Any("error", err))
		return err
	}
	logger.Info("completed analytics warmup", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}
