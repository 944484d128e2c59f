package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits tasks from the API process.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueWarmup asks the worker to rebuild the report cache.
func (c *Client) EnqueueWarmup(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewAnalyticsWarmupTask(false)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Unique(time.Minute))
}

// EnqueueReconcile asks for an immediate stock reconcile. Repeated requests
// within five minutes collapse into the one already queued.
func (c *Client) EnqueueReconcile(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewStockReconcileTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(1), asynq.TaskID(reconcileTaskID(time.Now().UTC())))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

func reconcileTaskID(now time.Time) string {
	return "reconcile-" + now.Truncate(5*time.Minute).Format("20060102T1504")
}
