package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	jobmetrics "github.com/gestao-cosmeticos/gestao/internal/jobs"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

type fakeStock struct {
	products []analytics.ProductSnapshot
	lots     []inventory.Lot
}

func (f fakeStock) ListProducts(ctx context.Context) ([]analytics.ProductSnapshot, error) {
	return f.products, nil
}

func (f fakeStock) ListOpenLots(ctx context.Context) ([]inventory.Lot, error) {
	return f.lots, nil
}

func (f fakeStock) RemainingByProduct(ctx context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for _, lot := range f.lots {
		out[lot.ProductID] += lot.Remaining
	}
	return out, nil
}

func newScanJob(t *testing.T, stock fakeStock, today time.Time) *StockScanJob {
	t.Helper()
	job := NewStockScanJob(stock, stock, slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()), 0)
	job.clock = func() time.Time { return today }
	return job
}

func TestScanExpiryClassifiesProducts(t *testing.T) {
	today := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	stock := fakeStock{
		products: []analytics.ProductSnapshot{{ID: 1, Stock: 5}, {ID: 2, Stock: 3}, {ID: 3, Stock: 2}, {ID: 4}},
		lots: []inventory.Lot{
			{ID: 1, ProductID: 1, Remaining: 5, ExpiryDate: today.AddDate(0, 0, -2)},
			{ID: 2, ProductID: 2, Remaining: 3, ExpiryDate: today.AddDate(0, 0, 30)},
			{ID: 3, ProductID: 3, Remaining: 2, ExpiryDate: today.AddDate(0, 0, 31)},
		},
	}
	report, err := newScanJob(t, stock, today).ScanExpiry(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1}, report.Expired)
	require.Equal(t, []int64{2}, report.Near)
}

func TestReconcileReportsMismatches(t *testing.T) {
	stock := fakeStock{
		products: []analytics.ProductSnapshot{{ID: 1, Stock: 6}, {ID: 2, Stock: 4}, {ID: 3, Stock: 0}},
		lots: []inventory.Lot{
			{ID: 1, ProductID: 1, Remaining: 6},
			{ID: 2, ProductID: 2, Remaining: 1},
			{ID: 3, ProductID: 2, Remaining: 2},
		},
	}
	mismatches, err := newScanJob(t, stock, time.Now()).Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Mismatch{{ProductID: 2, Stock: 4, Remaining: 3}}, mismatches)
}

func TestHandlersRejectBadPayload(t *testing.T) {
	job := newScanJob(t, fakeStock{}, time.Now())
	err := job.HandleReconcile(context.Background(), asynq.NewTask(TaskStockReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewExpiryScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.HandleExpiryScan(context.Background(), task))
}

type fakeWarmer struct {
	invalidated int
	dashboards  int
}

func (f *fakeWarmer) Invalidate(ctx context.Context) error {
	f.invalidated++
	return nil
}

func (f *fakeWarmer) Dashboard(ctx context.Context, period shared.Period) (analytics.Dashboard, error) {
	f.dashboards++
	return analytics.Dashboard{InventoryValue: decimal.Zero}, nil
}

func (f *fakeWarmer) CurrentMonth(ctx context.Context) (analytics.MonthSummary, error) {
	return analytics.MonthSummary{}, nil
}

func (f *fakeWarmer) Alerts(ctx context.Context) (analytics.Alerts, error) {
	return analytics.Alerts{}, nil
}

func TestAnalyticsWarmup(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewAnalyticsWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewAnalyticsWarmupTask(true)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, warmer.invalidated)
	require.Equal(t, 1, warmer.dashboards)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rr.Body.String())
}

type recordingCleaner struct {
	olderThan time.Duration
}

func (r *recordingCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	r.olderThan = olderThan
	return nil
}

func TestCleanupDefaultsRetention(t *testing.T) {
	cleaner := &recordingCleaner{}
	job := NewCleanupJob(cleaner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, DefaultKeyRetention, cleaner.olderThan)
}
