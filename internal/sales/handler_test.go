package sales

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newLoggedRouter(repo *memoryRepository) (http.Handler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := chi.NewRouter()
	NewHandler(logger, NewService(repo, WithLogger(logger))).MountRoutes(r)
	return r, &buf
}

func TestRejectedSaleLineLogsWarning(t *testing.T) {
	repo := newMemoryRepository()
	product := repo.addProduct(2, "10", "15")
	repo.addLot(product.ID, 2, 30)
	repo.nextID++
	saleID := repo.nextID
	repo.sales[saleID] = Sale{ID: saleID, PaymentMethod: PaymentCash, Total: decimal.Zero}
	router, logs := newLoggedRouter(repo)

	body := fmt.Sprintf(`{"product_id":%d,"quantity":5}`, product.ID)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/%d/lines", saleID), strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, logs.String(), `level=WARN msg="sales record sale line"`)
	require.NotContains(t, logs.String(), "level=ERROR")
}

func TestUnknownSaleLogsWarning(t *testing.T) {
	router, logs := newLoggedRouter(newMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/41", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, logs.String(), `level=WARN msg="sales invoice"`)
}
