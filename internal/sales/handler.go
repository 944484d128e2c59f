package sales

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// IdempotencyHeader carries the client key for sale line requests.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes sale endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.invoice)
	r.Post("/{id}/lines", h.addLine)
}

type lineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type createRequest struct {
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER"`
	Lines         []lineRequest `json:"lines" validate:"dive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, pagination, err := h.service.ListSales(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, r, "list sales", err)
		return
	}
	if items == nil {
		items = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

// create opens an empty sale, or checks out every line at once when lines are sent.
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
	method := PaymentMethod(req.PaymentMethod)
	if len(req.Lines) == 0 {
		sale, err := h.service.CreateSale(r.Context(), method)
		if err != nil {
			h.fail(w, r, "create sale", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, sale)
		return
	}
	input := CheckoutInput{PaymentMethod: method}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	sale, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		h.fail(w, r, "checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) invoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, "invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
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
	line, err := h.service.RecordSaleLine(r.Context(), id, LineInput{ProductID: req.ProductID, Quantity: req.Quantity}, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, r, "record sale line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Log(r.Context(), httpx.LogLevel(err), "sales "+op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
