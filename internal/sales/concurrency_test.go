package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// sharedRepository lets transactions interleave: every call is atomic on its
// own but nothing holds rows between calls, so a product read can go stale
// before the same transaction writes it back.
type sharedRepository struct {
	mu   sync.Mutex
	repo *memoryRepository
}

type sharedTx struct {
	mu *sync.Mutex
	tx *memoryTx
}

func (r *sharedRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &sharedTx{mu: &r.mu, tx: &memoryTx{repo: r.repo}})
}

func (r *sharedRepository) GetSale(ctx context.Context, id int64) (Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.GetSale(ctx, id)
}

func (r *sharedRepository) ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.ListSales(ctx, limit, offset)
}

func (t *sharedTx) InsertLot(ctx context.Context, lot inventory.Lot) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.InsertLot(ctx, lot)
}

func (t *sharedTx) ListOpenLotsForUpdate(ctx context.Context, productID int64) ([]inventory.Lot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.ListOpenLotsForUpdate(ctx, productID)
}

func (t *sharedTx) UpdateLotRemaining(ctx context.Context, lotID int64, remaining int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.UpdateLotRemaining(ctx, lotID, remaining)
}

func (t *sharedTx) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.CreateSale(ctx, sale)
}

func (t *sharedTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.GetSaleForUpdate(ctx, id)
}

func (t *sharedTx) InsertSaleLine(ctx context.Context, line SaleLine) (SaleLine, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.InsertSaleLine(ctx, line)
}

func (t *sharedTx) ListSaleLines(ctx context.Context, saleID int64) ([]SaleLine, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.ListSaleLines(ctx, saleID)
}

func (t *sharedTx) UpdateSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.UpdateSaleTotal(ctx, id, total)
}

func (t *sharedTx) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	t.mu.Lock()
	p, err := t.tx.GetProductForUpdate(ctx, id)
	t.mu.Unlock()
	// Keep the read open long enough for a competing sale to read the same stock.
	time.Sleep(5 * time.Millisecond)
	return p, err
}

func (t *sharedTx) SaveProductStock(ctx context.Context, p catalog.Product) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.SaveProductStock(ctx, p)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem := newMemoryRepository()
	product := mem.addProduct(10, "50", "80")
	mem.addLot(product.ID, 6, 30)
	mem.addLot(product.ID, 4, 90)
	const sellers = 8
	saleIDs := make([]int64, sellers)
	for i := range saleIDs {
		mem.nextID++
		saleIDs[i] = mem.nextID
		mem.sales[mem.nextID] = Sale{ID: mem.nextID, PaymentMethod: PaymentCash, Total: decimal.Zero}
	}
	repo := &sharedRepository{repo: mem}
	service := NewService(repo,
		WithLocker(shared.NewProductLocker(client, 5*time.Second)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	var mu sync.Mutex
	sold, accepted := 0, 0
	var g errgroup.Group
	for _, saleID := range saleIDs {
		g.Go(func() error {
			line, err := service.RecordSaleLine(context.Background(), saleID, LineInput{ProductID: product.ID, Quantity: 3}, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold += line.Quantity
				accepted++
				return nil
			case errors.Is(err, shared.ErrInsufficientStock), errors.Is(err, shared.ErrStockBusy):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	require.LessOrEqual(t, sold, 10)
	require.Equal(t, accepted*3, sold)
	require.Positive(t, accepted)
	require.Equal(t, 10-sold, mem.products[product.ID].Stock)
	require.Equal(t, mem.products[product.ID].Stock, mem.sumRemaining(product.ID))
	require.Len(t, mem.lines, accepted)
}
