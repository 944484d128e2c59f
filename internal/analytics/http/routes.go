package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// MountRoutes registers report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.Get("/cash-summary", h.handleCashSummary)
	r.Get("/inventory-value", h.handleInventoryValue)
	r.Get("/ledger", h.handleLedger)
	r.Get("/monthly", h.handleMonthly)
	r.Get("/month", h.handleCurrentMonth)
	r.Get("/products", h.handleProducts)
	r.Get("/alerts", h.handleAlerts)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/{report}", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if op := shared.OperatorFromContext(r.Context()); op > 0 {
		return "operator:" + strconv.FormatInt(op, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// InvalidateOnWrite drops cached reports after every successful write request.
func InvalidateOnWrite(inv Invalidator, onError func(error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || inv == nil {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= 300 {
				return
			}
			if err := inv.Invalidate(r.Context()); err != nil && onError != nil {
				onError(err)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
