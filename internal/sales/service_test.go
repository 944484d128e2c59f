package sales

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

type SalesServiceSuite struct {
	suite.Suite
	repo    *memoryRepository
	idem    *memoryIdempotency
	locker  *recordingLocker
	metrics *recordingMetrics
	service *Service
	ctx     context.Context
}

func (s *SalesServiceSuite) SetupTest() {
	s.repo = newMemoryRepository()
	s.idem = &memoryIdempotency{keys: map[string]string{}}
	s.locker = &recordingLocker{busy: map[int64]bool{}}
	s.metrics = &recordingMetrics{}
	s.service = NewService(s.repo,
		WithIdempotency(s.idem),
		WithLocker(s.locker),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.ctx = shared.ContextWithOperator(context.Background(), 3)
}

func TestSalesServiceSuite(t *testing.T) {
	suite.Run(t, new(SalesServiceSuite))
}

func (s *SalesServiceSuite) TestRecordSaleLineConsumesFEFOAndCapturesPrice() {
	t := s.T()
	product := s.repo.addProduct(10, "50", "80")
	late := s.repo.addLot(product.ID, 5, 40)
	early := s.repo.addLot(product.ID, 5, 10)

	sale, err := s.service.CreateSale(s.ctx, PaymentCash)
	require.NoError(t, err)
	require.EqualValues(t, 3, sale.OperatorID)

	line, err := s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 7}, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(line.UnitPrice))
	require.Len(t, line.Allocations, 2)
	assert.Equal(t, early.ID, line.Allocations[0].LotID)
	assert.Equal(t, 5, line.Allocations[0].Taken)

	assert.Equal(t, 0, s.repo.lots[early.ID].Remaining)
	assert.Equal(t, 3, s.repo.lots[late.ID].Remaining)
	assert.Equal(t, 3, s.repo.products[product.ID].Stock)
	assert.Equal(t, s.repo.products[product.ID].Stock, s.repo.sumRemaining(product.ID))
	assert.True(t, decimal.NewFromInt(560).Equal(s.repo.sales[sale.ID].Total))

	// A later price change does not touch recorded lines.
	p := s.repo.products[product.ID]
	p.SalePrice = decimal.NewFromInt(100)
	s.repo.products[product.ID] = p
	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 1}, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(660).Equal(s.repo.sales[sale.ID].Total))
	assert.Equal(t, 8, s.metrics.units)
	assert.Equal(t, []int64{product.ID, product.ID}, s.locker.locked)
	assert.Equal(t, 2, s.locker.released)
}

func (s *SalesServiceSuite) TestInsufficientStockLeavesEverythingUntouched() {
	t := s.T()
	product := s.repo.addProduct(3, "10", "20")
	lot := s.repo.addLot(product.ID, 3, 30)
	sale, err := s.service.CreateSale(s.ctx, PaymentCard)
	require.NoError(t, err)

	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 4}, "")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, product.ID, stockErr.ProductID)

	assert.Equal(t, 3, s.repo.products[product.ID].Stock)
	assert.Equal(t, 3, s.repo.lots[lot.ID].Remaining)
	assert.Empty(t, s.repo.lines)
	assert.True(t, s.repo.sales[sale.ID].Total.IsZero())
	assert.Equal(t, []string{"insufficient_stock"}, s.metrics.rejected)
}

func (s *SalesServiceSuite) TestLotShortfallRollsBackEvenWhenStockCoversIt() {
	t := s.T()
	product := s.repo.addProduct(10, "10", "20")
	lot := s.repo.addLot(product.ID, 5, 30)
	sale, err := s.service.CreateSale(s.ctx, PaymentCash)
	require.NoError(t, err)

	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 6}, "")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 10, s.repo.products[product.ID].Stock)
	assert.Equal(t, 5, s.repo.lots[lot.ID].Remaining)
	assert.Empty(t, s.repo.lines)
}

func (s *SalesServiceSuite) TestCheckoutIsAtomic() {
	t := s.T()
	a := s.repo.addProduct(5, "10", "20")
	s.repo.addLot(a.ID, 5, 30)
	b := s.repo.addProduct(1, "10", "25")
	s.repo.addLot(b.ID, 1, 30)

	_, err := s.service.Checkout(s.ctx, CheckoutInput{PaymentMethod: PaymentTransfer, Lines: []LineInput{
		{ProductID: b.ID, Quantity: 1},
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Empty(t, s.repo.sales)
	assert.Equal(t, 5, s.repo.products[a.ID].Stock)
	assert.Equal(t, 1, s.repo.products[b.ID].Stock)
	assert.Equal(t, []int64{a.ID, b.ID}, s.locker.locked)
	assert.Equal(t, 2, s.locker.released)

	sale, err := s.service.Checkout(s.ctx, CheckoutInput{PaymentMethod: PaymentTransfer, Lines: []LineInput{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2)
	assert.True(t, decimal.NewFromInt(65).Equal(sale.Total))
	assert.Equal(t, 3, s.repo.products[a.ID].Stock)
	assert.Equal(t, 0, s.repo.products[b.ID].Stock)
}

func (s *SalesServiceSuite) TestIdempotencyKey() {
	t := s.T()
	product := s.repo.addProduct(5, "10", "20")
	s.repo.addLot(product.ID, 5, 30)
	sale, err := s.service.CreateSale(s.ctx, PaymentCash)
	require.NoError(t, err)
	key := uuid.NewString()

	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 1}, "not-a-uuid")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 1}, key)
	require.NoError(t, err)
	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 1}, key)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Equal(t, 4, s.repo.products[product.ID].Stock)

	failing := uuid.NewString()
	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 50}, failing)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.NotContains(t, s.idem.keys, failing)
}

func (s *SalesServiceSuite) TestBusyProductLock() {
	t := s.T()
	product := s.repo.addProduct(5, "10", "20")
	s.repo.addLot(product.ID, 5, 30)
	sale, err := s.service.CreateSale(s.ctx, PaymentCash)
	require.NoError(t, err)
	txBefore := s.repo.txCount
	s.locker.busy[product.ID] = true

	_, err = s.service.RecordSaleLine(s.ctx, sale.ID, LineInput{ProductID: product.ID, Quantity: 1}, "")
	require.ErrorIs(t, err, shared.ErrStockBusy)
	assert.Equal(t, txBefore, s.repo.txCount)
	assert.Equal(t, []string{"busy"}, s.metrics.rejected)
}

func (s *SalesServiceSuite) TestValidationAndNotFound() {
	t := s.T()
	_, err := s.service.CreateSale(s.ctx, PaymentMethod("CHEQUE"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = s.service.RecordSaleLine(s.ctx, 99, LineInput{ProductID: 1, Quantity: 1}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.service.RecordSaleLine(s.ctx, 99, LineInput{ProductID: 1, Quantity: 0}, "")
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "quantity")

	_, err = s.service.Checkout(s.ctx, CheckoutInput{PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = s.service.GetInvoice(s.ctx, 12345)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func (s *SalesServiceSuite) TestInvoiceAndHistory() {
	t := s.T()
	product := s.repo.addProduct(10, "1", "12.50")
	s.repo.addLot(product.ID, 10, 30)

	first, err := s.service.Checkout(s.ctx, CheckoutInput{PaymentMethod: PaymentCash, Lines: []LineInput{{ProductID: product.ID, Quantity: 3}}})
	require.NoError(t, err)
	second, err := s.service.CreateSale(s.ctx, PaymentCard)
	require.NoError(t, err)

	inv, err := s.service.GetInvoice(s.ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.True(t, decimal.RequireFromString("37.50").Equal(inv.Lines[0].LineTotal))
	assert.True(t, decimal.RequireFromString("37.50").Equal(inv.Total))

	items, page, err := s.service.ListSales(s.ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, 2, page.Total)
}

func TestSaleTotalFold(t *testing.T) {
	lines := []SaleLine{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("10.10")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("0.05")},
	}
	require.True(t, decimal.RequireFromString("20.25").Equal(SaleTotal(lines)))
	require.True(t, SaleTotal(nil).IsZero())
}

func TestHandlerMapsInsufficientStockToConflict(t *testing.T) {
	repo := newMemoryRepository()
	product := repo.addProduct(1, "10", "20")
	repo.addLot(product.ID, 1, 30)
	svc := NewService(repo)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_method":"CASH"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/3/lines", strings.NewReader(`{"product_id":1,"quantity":2}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `"available":1`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_method":"CHEQUE"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
