package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/gestao-cosmeticos/gestao/internal/analytics/http"
	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/finance"
	"github.com/gestao-cosmeticos/gestao/internal/observability"
	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/procurement"
	"github.com/gestao-cosmeticos/gestao/internal/sales"
	"github.com/gestao-cosmeticos/gestao/jobs"
	"github.com/gestao-cosmeticos/gestao/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CatalogHandler     *catalog.Handler
	ProcurementHandler *procurement.Handler
	SalesHandler       *sales.Handler
	FinanceHandler     *finance.Handler
	AnalyticsHandler   *analytichttp.Handler
	// ReportCache is invalidated after every successful write.
	ReportCache analytichttp.Invalidator
	JobHandler  *jobs.Handler
	// InvoiceHandler serves printable invoices under /invoices.
	InvoiceHandler *report.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(analytichttp.InvalidateOnWrite(params.ReportCache, func(err error) {
			params.Logger.Warn("invalidate reports", slog.Any("error", err))
		}))
		if params.CatalogHandler != nil {
			r.Route("/catalog", params.CatalogHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			r.Route("/purchases", params.ProcurementHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.FinanceHandler != nil {
			r.Route("/finance", params.FinanceHandler.MountRoutes)
		}
	})
	if params.AnalyticsHandler != nil {
		r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	}
	if params.InvoiceHandler != nil {
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
