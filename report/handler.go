package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestao-cosmeticos/gestao/internal/platform/httpx"
	"github.com/gestao-cosmeticos/gestao/internal/sales"
)

// InvoiceSource loads a sale as an invoice.
type InvoiceSource interface {
	GetInvoice(ctx context.Context, id int64) (sales.Invoice, error)
}

// Handler serves printable invoices.
type Handler struct {
	client   *Client
	renderer *InvoiceRenderer
	invoices InvoiceSource
	logger   *slog.Logger
}

// NewHandler creates a report handler. A nil client disables the PDF route.
func NewHandler(client *Client, renderer *InvoiceRenderer, invoices InvoiceSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, renderer: renderer, invoices: invoices, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}/html", h.invoiceHTML)
	if h.client != nil {
		r.Get("/ping", h.ping)
		r.Get("/{id}/pdf", h.invoicePDF)
	}
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) invoiceHTML(w http.ResponseWriter, r *http.Request) {
	_, html, ok := h.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	inv, html, ok := h.render(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("fatura-%d.pdf", inv.Sale.ID)
	pdf, err := h.client.RenderHTML(r.Context(), filename, html)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("sale_id", inv.Sale.ID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) (sales.Invoice, string, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return sales.Invoice{}, "", false
	}
	inv, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("load invoice", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return sales.Invoice{}, "", false
	}
	html, err := h.renderer.HTML(inv)
	if err != nil {
		h.logger.Error("render invoice", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return sales.Invoice{}, "", false
	}
	return inv, html, true
}
