package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Handler exposes catalog endpoints as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Get("/products/{id}/margin", h.productMargin)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Delete("/categories/{id}", h.deleteCategory)

	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Delete("/suppliers/{id}", h.deleteSupplier)
}

type productPage struct {
	Items      []Product         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("q"), LowStock: q.Get("low_stock") == "true"}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("category_id", "inválido"))
			return
		}
		filters.CategoryID = &id
	}
	items, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	if items == nil {
		items = []Product{}
	}
	httpx.JSON(w, http.StatusOK, productPage{Items: items, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) productMargin(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Margin(r.Context(), id)
	if err != nil {
		h.fail(w, r, "product margin", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type namedRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Contact string `json:"contact" validate:"max=200"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, "list categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeNamed(w, r)
	if !ok {
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "create category", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.fail(w, r, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeNamed(w, r)
	if !ok {
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), req.Name, req.Contact)
	if err != nil {
		h.fail(w, r, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		h.fail(w, r, "delete supplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeNamed(w http.ResponseWriter, r *http.Request) (namedRequest, bool) {
	var req namedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return req, false
	}
	if err := validateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return req, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Log(r.Context(), httpx.LogLevel(err), "catalog "+op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
