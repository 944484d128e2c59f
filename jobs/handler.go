package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
)

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// ReconcileEnqueuer queues an on-demand stock reconcile.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context) (*asynq.TaskInfo, error)
}

// Handler exposes queue health and manual triggers over HTTP.
type Handler struct {
	inspector QueueInspector
	enqueuer  ReconcileEnqueuer
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil enqueuer
// leaves the reconcile trigger unmounted.
func NewHandler(inspector QueueInspector, enqueuer ReconcileEnqueuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	if h.enqueuer != nil {
		r.Post("/reconcile", h.reconcile)
	}
}

type queueStatus struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
	Failed  int    `json:"failed"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	statuses := make([]queueStatus, 0, 2)
	for _, queue := range []string{QueueStock, QueueReports} {
		status := queueStatus{Queue: queue}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(queue)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
				// Nothing enqueued on it yet.
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			case info != nil:
				status.Pending = info.Pending
				status.Active = info.Active
				status.Retry = info.Retry
				status.Failed = info.Failed
			}
		}
		statuses = append(statuses, status)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": statuses})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	info, err := h.enqueuer.EnqueueReconcile(r.Context())
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "already queued"})
	case err != nil:
		h.logger.Error("enqueue reconcile", slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued", "task_id": info.ID})
	}
}
