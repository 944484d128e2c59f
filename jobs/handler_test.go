package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

type fakeEnqueuer struct {
	err   error
	calls int
}

func (f *fakeEnqueuer) EnqueueReconcile(context.Context) (*asynq.TaskInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "reconcile-1", Queue: QueueStock}, nil
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestHealthListsBothQueues(t *testing.T) {
	h := NewHandler(fakeInspector{infos: map[string]*asynq.QueueInfo{
		QueueStock: {Queue: QueueStock, Pending: 2, Failed: 1},
	}}, nil, nil)

	rr := serve(h, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queues":[
		{"queue":"stock","pending":2,"active":0,"retry":0,"failed":1},
		{"queue":"reports","pending":0,"active":0,"retry":0,"failed":0}]}`, rr.Body.String())
}

func TestHealthUnavailable(t *testing.T) {
	h := NewHandler(fakeInspector{err: errors.New("redis down")}, nil, nil)
	rr := serve(h, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReconcileTrigger(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := NewHandler(nil, enq, nil)

	rr := serve(h, http.MethodPost, "/jobs/reconcile")
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.JSONEq(t, `{"status":"queued","task_id":"reconcile-1"}`, rr.Body.String())

	enq.err = asynq.ErrTaskIDConflict
	rr = serve(h, http.MethodPost, "/jobs/reconcile")
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), "already queued")
	require.Equal(t, 2, enq.calls)
}

func TestReconcileTriggerUnmountedWithoutClient(t *testing.T) {
	rr := serve(NewHandler(nil, nil, nil), http.MethodPost, "/jobs/reconcile")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTasksRouteToQueues(t *testing.T) {
	now := time.Date(2025, 3, 15, 6, 2, 0, 0, time.UTC)
	schedule, err := DefaultSchedule(now)
	require.NoError(t, err)
	require.Len(t, schedule, 4)

	queues := map[string]string{}
	for _, entry := range schedule {
		queues[entry.Task.Type()] = queueFor(entry.Task.Type())
	}
	require.Equal(t, QueueStock, queues[TaskExpiryScan])
	require.Equal(t, QueueStock, queues[TaskStockReconcile])
	require.Equal(t, QueueReports, queues[TaskAnalyticsWarmup])
	require.Equal(t, QueueReports, queues[TaskIdempotencyCleanup])
	require.Equal(t, "reconcile-20250315T0600", reconcileTaskID(now))
}
