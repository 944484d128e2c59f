package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Stock checks run on their own queue so a slow report rebuild never delays them.
const (
	QueueStock   = "stock"
	QueueReports = "reports"
)

const (
	// TaskExpiryScan reports products whose next lot is expired or close to expiry.
	TaskExpiryScan = "inventory:expiry_scan"
	// TaskStockReconcile compares product stock with the open lot remainders.
	TaskStockReconcile = "inventory:reconcile"
	// TaskAnalyticsWarmup drops cached reports and rebuilds the dashboard.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// ScanPayload carries scheduling metadata shared by the stock scans.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// WarmupPayload selects which reports the warmup rebuilds.
type WarmupPayload struct {
	Invalidate bool `json:"invalidate"`
}

// NewExpiryScanTask constructs an expiry scan task.
func NewExpiryScanTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskExpiryScan, ScanPayload{ScheduledFor: at})
}

// NewStockReconcileTask constructs a stock reconcile task.
func NewStockReconcileTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskStockReconcile, ScanPayload{ScheduledFor: at})
}

// NewAnalyticsWarmupTask constructs an analytics warmup task.
func NewAnalyticsWarmupTask(invalidate bool) (*asynq.Task, error) {
	return newTask(TaskAnalyticsWarmup, WarmupPayload{Invalidate: invalidate})
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(queueFor(typ))), nil
}

func queueFor(typ string) string {
	switch typ {
	case TaskExpiryScan, TaskStockReconcile:
		return QueueStock
	default:
		return QueueReports
	}
}

// QueuePriorities is the weighted queue set the worker serves.
func QueuePriorities() map[string]int {
	return map[string]int{QueueStock: 3, QueueReports: 1}
}

// TaskIdempotencyCleanup deletes processed request keys past their retention.
const TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

// CleanupPayload sets the retention of the cleanup run.
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewIdempotencyCleanupTask constructs an idempotency cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, CleanupPayload{OlderThan: olderThan})
}
