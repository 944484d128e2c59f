package procurement

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Handler exposes purchase endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/lines", h.addLine)
}

type lineRequest struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	Quantity   int             `json:"quantity" validate:"required,gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate string          `json:"expiry_date" validate:"required"`
	Batch      string          `json:"batch" validate:"max=50"`
}

type createRequest struct {
	SupplierID *int64        `json:"supplier_id" validate:"omitempty,gt=0"`
	Lines      []lineRequest `json:"lines" validate:"dive"`
}

func (r lineRequest) toInput() (LineInput, error) {
	expiry, err := time.Parse(shared.DateLayout, r.ExpiryDate)
	if err != nil {
		return LineInput{}, shared.NewValidationError("expiry_date", "use o formato AAAA-MM-DD")
	}
	return LineInput{
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		UnitCost:   r.UnitCost,
		ExpiryDate: expiry,
		Batch:      r.Batch,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, pagination, err := h.service.ListPurchases(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, r, "list purchases", err)
		return
	}
	if items == nil {
		items = []Purchase{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("request", err.Error()))
		return
	}
	input := CreatePurchaseInput{SupplierID: req.SupplierID}
	for _, line := range req.Lines {
		in, err := line.toInput()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Lines = append(input.Lines, in)
	}
	purchase, err := h.service.CreatePurchase(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create purchase", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("request", err.Error()))
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.RecordPurchaseLine(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "record purchase line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Log(r.Context(), httpx.LogLevel(err), "procurement "+op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
