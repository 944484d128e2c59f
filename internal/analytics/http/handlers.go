package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	"github.com/gestao-cosmeticos/gestao/internal/analytics/export"
	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

const requestTimeout = 5 * time.Second

// DefaultExportLimit is the number of exports an operator may request per minute.
const DefaultExportLimit = 10

// ReportService defines the report contract used by the handler.
type ReportService interface {
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
	CashSummary(ctx context.Context, period shared.Period) (analytics.CashSummary, error)
	Ledger(ctx context.Context, period shared.Period) ([]analytics.LedgerEntry, error)
	Monthly(ctx context.Context) ([]analytics.MonthlyRow, error)
	CurrentMonth(ctx context.Context) (analytics.MonthSummary, error)
	Products(ctx context.Context) ([]analytics.ProductRow, error)
	Alerts(ctx context.Context) (analytics.Alerts, error)
	Dashboard(ctx context.Context, period shared.Period) (analytics.Dashboard, error)
}

// Invalidator drops cached reports.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler serves the report endpoints.
type Handler struct {
	logger      *slog.Logger
	service     ReportService
	exportLimit int
	bufPool     sync.Pool
}

// NewHandler constructs the analytics HTTP handler. exportLimit <= 0 uses DefaultExportLimit.
func NewHandler(logger *slog.Logger, service ReportService, exportLimit int) *Handler {
	if exportLimit <= 0 {
		exportLimit = DefaultExportLimit
	}
	h := &Handler{logger: logger, service: service, exportLimit: exportLimit}
	h.bufPool.New = func() any { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	dash, err := h.service.Dashboard(ctx, period)
	h.respond(w, "dashboard", dash, err)
}

func (h *Handler) handleCashSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.CashSummary(ctx, period)
	h.respond(w, "cash summary", summary, err)
}

func (h *Handler) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	value, err := h.service.InventoryValue(ctx)
	h.respond(w, "inventory value", map[string]decimal.Decimal{"inventory_value": value}, err)
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	entries, err := h.service.Ledger(ctx, period)
	if entries == nil {
		entries = []analytics.LedgerEntry{}
	}
	h.respond(w, "ledger", entries, err)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.service.Monthly(ctx)
	if rows == nil {
		rows = []analytics.MonthlyRow{}
	}
	h.respond(w, "monthly", rows, err)
}

func (h *Handler) handleCurrentMonth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.CurrentMonth(ctx)
	h.respond(w, "current month", summary, err)
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.service.Products(ctx)
	if rows == nil {
		rows = []analytics.ProductRow{}
	}
	h.respond(w, "products", rows, err)
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	alerts, err := h.service.Alerts(ctx)
	h.respond(w, "alerts", alerts, err)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		httpx.RespondError(w, shared.NewValidationError("format", "use csv ou xlsx"))
		return
	}
	period, ok := h.period(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	table, err := h.table(ctx, report, period)
	if err != nil {
		h.logError("export "+report, err)
		httpx.RespondError(w, err)
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	contentType := "text/csv; charset=utf-8"
	write := export.WriteCSV
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		write = export.WriteXLSX
	}
	if err := write(buf, table); err != nil {
		h.logError("write "+format, err)
		httpx.RespondError(w, err)
		return
	}

	filename := fmt.Sprintf("%s.%s", report, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream export", err)
	}
}

func (h *Handler) table(ctx context.Context, report string, period shared.Period) (export.Table, error) {
	switch report {
	case "ledger":
		entries, err := h.service.Ledger(ctx, period)
		if err != nil {
			return export.Table{}, err
		}
		return export.LedgerTable(entries), nil
	case "monthly":
		rows, err := h.service.Monthly(ctx)
		if err != nil {
			return export.Table{}, err
		}
		return export.MonthlyTable(rows), nil
	case "products":
		rows, err := h.service.Products(ctx)
		if err != nil {
			return export.Table{}, err
		}
		return export.ProductsTable(rows), nil
	default:
		return export.Table{}, fmt.Errorf("report %q: %w", report, shared.ErrNotFound)
	}
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (shared.Period, bool) {
	q := r.URL.Query()
	period, err := shared.ParsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Period{}, false
	}
	return period, true
}

func (h *Handler) respond(w http.ResponseWriter, op string, payload any, err error) {
	if err != nil {
		h.logError(op, err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) logError(op string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Error("analytics handler", slog.String("op", op), slog.Any("error", err))
}
