package finance

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Handler exposes expense and extra revenue endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/expenses", h.list(KindExpense))
	r.Post("/expenses", h.create(KindExpense))
	r.Get("/revenues", h.list(KindRevenue))
	r.Post("/revenues", h.create(KindRevenue))
}

type entryRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := shared.ParsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		list := h.service.ListExpenses
		if kind == KindRevenue {
			list = h.service.ListRevenues
		}
		entries, err := list(r.Context(), period)
		if err != nil {
			h.logger.Log(r.Context(), httpx.LogLevel(err), "finance list", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if entries == nil {
			entries = []Entry{}
		}
		httpx.JSON(w, http.StatusOK, entries)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		in := EntryInput{Description: req.Description, Amount: req.Amount}
		if req.Date != "" {
			date, err := time.Parse(shared.DateLayout, req.Date)
			if err != nil {
				httpx.RespondError(w, shared.NewValidationError("date", "use o formato AAAA-MM-DD"))
				return
			}
			in.Date = date
		}
		record := h.service.RecordExpense
		if kind == KindRevenue {
			record = h.service.RecordRevenue
		}
		entry, err := record(r.Context(), in)
		if err != nil {
			h.logger.Log(r.Context(), httpx.LogLevel(err), "finance record", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, entry)
	}
}
