package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gestao-cosmeticos/gestao/internal/jobs"
)

// DefaultKeyRetention is how long processed idempotency keys are kept.
const DefaultKeyRetention = 7 * 24 * time.Hour

// KeyCleaner deletes idempotency keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// CleanupJob prunes the idempotency key table.
type CleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCleanupJob wires dependencies for the cleanup handler.
func NewCleanupJob(keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupJob {
	return &CleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = DefaultKeyRetention
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := slog.Default()
	if j.Logger != nil {
		logger = j.Logger
	}
	if err := j.Keys.Cleanup(ctx, payload.OlderThan); err != nil {
		logger.Error("idempotency cleanup", slog.String("job", TaskIdempotencyCleanup), slog.Any("error", err))
		return err
	}
	logger.Info("idempotency cleanup completed", slog.String("job", TaskIdempotencyCleanup), slog.Duration("older_than", payload.OlderThan))
	return nil
}
