package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Worker runs the task server and the cron scheduler together.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// DefaultSchedule is the daily stock checks, the hourly report rebuild and the
// nightly idempotency key cleanup, all in UTC.
func DefaultSchedule(now time.Time) ([]CronRegistration, error) {
	expiry, err := NewExpiryScanTask(now)
	if err != nil {
		return nil, err
	}
	reconcile, err := NewStockReconcileTask(now)
	if err != nil {
		return nil, err
	}
	warmup, err := NewAnalyticsWarmupTask(true)
	if err != nil {
		return nil, err
	}
	cleanup, err := NewIdempotencyCleanupTask(DefaultKeyRetention)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: "0 6 * * *", Task: expiry, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "30 6 * * *", Task: reconcile, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "0 * * * *", Task: warmup, Options: []asynq.Option{asynq.MaxRetry(1)}},
		{Spec: "0 3 * * *", Task: cleanup, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}, nil
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      QueuePriorities(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("task failed",
				slog.String("task", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	})

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("worker: incomplete handler for %q", h.Type)
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			id, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...)
			if err != nil {
				return nil, fmt.Errorf("schedule %s: %w", entry.Task.Type(), err)
			}
			logger.Info("scheduled task", slog.String("task", entry.Task.Type()), slog.String("spec", entry.Spec), slog.String("entry", id))
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler}, nil
}

// Run processes tasks until ctx is cancelled or the server fails.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return ctx.Err()
}
