package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

type memoryRepository struct {
	products map[int64]catalog.Product
	lots     map[int64]inventory.Lot
	sales    map[int64]Sale
	lines    map[int64]SaleLine
	nextID   int64
	txCount  int
}

type memoryTx struct {
	repo *memoryRepository
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		products: map[int64]catalog.Product{},
		lots:     map[int64]inventory.Lot{},
		sales:    map[int64]Sale{},
		lines:    map[int64]SaleLine{},
	}
}

func clone[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (r *memoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.txCount++
	products, lots, sales, lines := clone(r.products), clone(r.lots), clone(r.sales), clone(r.lines)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products, r.lots, r.sales, r.lines = products, lots, sales, lines
		return err
	}
	return nil
}

func (r *memoryRepository) GetSale(_ context.Context, id int64) (Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("sale %d: %w", id, shared.ErrNotFound)
	}
	sale.Lines = r.saleLines(id)
	return sale, nil
}

func (r *memoryRepository) ListSales(_ context.Context, limit, offset int) ([]Sale, int, error) {
	out := make([]Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, len(out), nil
	}
	return out[offset:min(len(out), offset+limit)], len(out), nil
}

func (r *memoryRepository) saleLines(saleID int64) []SaleLine {
	var out []SaleLine
	for _, l := range r.lines {
		if l.SaleID == saleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepository) addProduct(stock int, avg, price string) catalog.Product {
	r.nextID++
	p := catalog.Product{ID: r.nextID, Name: fmt.Sprintf("Produto %d", r.nextID), Brand: "Avon", CategoryID: 1,
		AvgCost: decimal.RequireFromString(avg), SalePrice: decimal.RequireFromString(price), Stock: stock, MinStock: 5}
	r.products[p.ID] = p
	return p
}

func (r *memoryRepository) addLot(productID int64, remaining int, expiresInDays int) inventory.Lot {
	r.nextID++
	lot := inventory.Lot{ID: r.nextID, ProductID: productID, Quantity: remaining, Remaining: remaining,
		UnitCost: decimal.NewFromInt(10), ExpiryDate: time.Now().UTC().AddDate(0, 0, expiresInDays)}
	r.lots[lot.ID] = lot
	return lot
}

func (r *memoryRepository) sumRemaining(productID int64) int {
	total := 0
	for _, lot := range r.lots {
		if lot.ProductID == productID {
			total += lot.Remaining
		}
	}
	return total
}

func (t *memoryTx) InsertLot(_ context.Context, lot inventory.Lot) (int64, error) {
	t.repo.nextID++
	lot.ID = t.repo.nextID
	t.repo.lots[lot.ID] = lot
	return lot.ID, nil
}

func (t *memoryTx) ListOpenLotsForUpdate(_ context.Context, productID int64) ([]inventory.Lot, error) {
	var out []inventory.Lot
	for _, lot := range t.repo.lots {
		if lot.ProductID == productID && lot.Remaining > 0 {
			out = append(out, lot)
		}
	}
	inventory.SortFEFO(out)
	return out, nil
}

func (t *memoryTx) UpdateLotRemaining(_ context.Context, lotID int64, remaining int) error {
	lot := t.repo.lots[lotID]
	lot.Remaining = remaining
	t.repo.lots[lotID] = lot
	return nil
}

func (t *memoryTx) CreateSale(_ context.Context, sale Sale) (Sale, error) {
	t.repo.nextID++
	sale.ID = t.repo.nextID
	sale.CreatedAt = time.Now()
	t.repo.sales[sale.ID] = sale
	return sale, nil
}

func (t *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return t.repo.GetSale(ctx, id)
}

func (t *memoryTx) InsertSaleLine(_ context.Context, line SaleLine) (SaleLine, error) {
	t.repo.nextID++
	line.ID = t.repo.nextID
	line.CreatedAt = time.Now()
	t.repo.lines[line.ID] = line
	return line, nil
}

func (t *memoryTx) ListSaleLines(_ context.Context, saleID int64) ([]SaleLine, error) {
	return t.repo.saleLines(saleID), nil
}

func (t *memoryTx) UpdateSaleTotal(_ context.Context, id int64, total decimal.Decimal) error {
	sale := t.repo.sales[id]
	sale.Total = total
	t.repo.sales[id] = sale
	return nil
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := t.repo.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (t *memoryTx) SaveProductStock(_ context.Context, p catalog.Product) error {
	t.repo.products[p.ID] = p
	return nil
}

type memoryIdempotency struct {
	keys map[string]string
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type recordingLocker struct {
	locked   []int64
	released int
	busy     map[int64]bool
}

func (l *recordingLocker) Lock(_ context.Context, productID int64) (func(), error) {
	if l.busy[productID] {
		return nil, fmt.Errorf("product %d: %w", productID, shared.ErrStockBusy)
	}
	l.locked = append(l.locked, productID)
	return func() { l.released++ }, nil
}

type recordingMetrics struct {
	units    int
	rejected []string
}

func (m *recordingMetrics) ObserveMovement(_ string, units int) { m.units += units }

func (m *recordingMetrics) ObserveRejected(_ string, reason string) {
	m.rejected = append(m.rejected, reason)
}
