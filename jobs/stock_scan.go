package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	jobmetrics "github.com/gestao-cosmeticos/gestao/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Stock issue kinds reported to jobmetrics.
const (
	IssueExpired  = "expired"
	IssueNear     = "near_expiry"
	IssueMismatch = "stock_mismatch"
)

// StockSource reads products and their open lots.
type StockSource interface {
	ListProducts(ctx context.Context) ([]analytics.ProductSnapshot, error)
	ListOpenLots(ctx context.Context) ([]inventory.Lot, error)
}

// LotTotals sums open lot remainders per product.
type LotTotals interface {
	RemainingByProduct(ctx context.Context) (map[int64]int, error)
}

// StockScanJob runs the expiry scan and the stock reconcile.
type StockScanJob struct {
	Stock    StockSource
	Lots     LotTotals
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	NearDays int
	clock    func() time.Time
}

// NewStockScanJob wires dependencies for the stock scan handlers.
func NewStockScanJob(stock StockSource, lots LotTotals, logger *slog.Logger, metrics *jobmetrics.Metrics, nearDays int) *StockScanJob {
	if nearDays <= 0 {
		nearDays = inventory.NearExpiryDays
	}
	return &StockScanJob{
		Stock:    stock,
		Lots:     lots,
		Logger:   logger,
		Metrics:  metrics,
		NearDays: nearDays,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ExpiryReport counts products by expiry status.
type ExpiryReport struct {
	Expired []int64
	Near    []int64
}

// Mismatch is a product whose stock differs from the sum of its open lots.
type Mismatch struct {
	ProductID int64
	Stock     int
	Remaining int
}

// HandleExpiryScan processes TaskExpiryScan tasks.
func (j *StockScanJob) HandleExpiryScan(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Stock == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskExpiryScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.ScanExpiry(ctx)
	if err != nil {
		j.logger(TaskExpiryScan).Error("expiry scan", slog.Any("error", err))
		return err
	}
	j.metrics().AddStockIssues(IssueExpired, len(report.Expired))
	j.metrics().AddStockIssues(IssueNear, len(report.Near))
	j.logger(TaskExpiryScan).Info("expiry scan completed",
		slog.Int("expired", len(report.Expired)),
		slog.Int("near_expiry", len(report.Near)),
		slog.Any("expired_products", report.Expired),
	)
	return nil
}

// ScanExpiry classifies every product by its earliest open lot.
func (j *StockScanJob) ScanExpiry(ctx context.Context) (ExpiryReport, error) {
	products, err := j.Stock.ListProducts(ctx)
	if err != nil {
		return ExpiryReport{}, err
	}
	lots, err := j.Stock.ListOpenLots(ctx)
	if err != nil {
		return ExpiryReport{}, err
	}
	byProduct := map[int64][]inventory.Lot{}
	for _, lot := range lots {
		byProduct[lot.ProductID] = append(byProduct[lot.ProductID], lot)
	}
	today := j.now()
	var report ExpiryReport
	for _, p := range products {
		switch inventory.ClassifyExpiryWithin(byProduct[p.ID], today, j.NearDays) {
		case inventory.ExpiryExpired:
			report.Expired = append(report.Expired, p.ID)
		case inventory.ExpiryNear:
			report.Near = append(report.Near, p.ID)
		}
	}
	return report, nil
}

// HandleReconcile processes TaskStockReconcile tasks. Mismatches are reported,
// never corrected.
func (j *StockScanJob) HandleReconcile(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Stock == nil || j.Lots == nil {
		return errors.New("stock reconcile: handler not configured")
	}
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskStockReconcile)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	mismatches, err := j.Reconcile(ctx)
	if err != nil {
		j.logger(TaskStockReconcile).Error("stock reconcile", slog.Any("error", err))
		return err
	}
	j.metrics().AddStockIssues(IssueMismatch, len(mismatches))
	for _, m := range mismatches {
		j.logger(TaskStockReconcile).Warn("stock mismatch",
			slog.Int64("product_id", m.ProductID),
			slog.Int("stock", m.Stock),
			slog.Int("lot_remaining", m.Remaining),
		)
	}
	j.logger(TaskStockReconcile).Info("stock reconcile completed", slog.Int("mismatches", len(mismatches)))
	return nil
}

// Reconcile lists products whose stock differs from Σ lot remaining.
func (j *StockScanJob) Reconcile(ctx context.Context) ([]Mismatch, error) {
	products, err := j.Stock.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	remaining, err := j.Lots.RemainingByProduct(ctx)
	if err != nil {
		return nil, err
	}
	var out []Mismatch
	for _, p := range products {
		if got := remaining[p.ID]; got != p.Stock {
			out = append(out, Mismatch{ProductID: p.ID, Stock: p.Stock, Remaining: got})
		}
	}
	return out, nil
}

func (j *StockScanJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *StockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
