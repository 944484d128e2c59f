package e2e

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/procurement"
	"github.com/gestao-cosmeticos/gestao/internal/sales"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// store is one in-memory database shared by the catalog, procurement, sales
// and analytics fakes, so a flow through all of them sees the same rows.
type store struct {
	mu         sync.Mutex
	categories map[int64]catalog.Category
	products   map[int64]catalog.Product
	lots       map[int64]inventory.Lot
	purchases  map[int64]procurement.Purchase
	sales      map[int64]sales.Sale
	saleLines  map[int64]sales.SaleLine
	nextID     int64
}

func newStore() *store {
	return &store{
		categories: map[int64]catalog.Category{},
		products:   map[int64]catalog.Product{},
		lots:       map[int64]inventory.Lot{},
		purchases:  map[int64]procurement.Purchase{},
		sales:      map[int64]sales.Sale{},
		saleLines:  map[int64]sales.SaleLine{},
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func clone[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// tx runs fn under the store lock and restores every table when fn fails.
func (s *store) tx(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	products, lots, purchases, sl, lines := clone(s.products), clone(s.lots), clone(s.purchases), clone(s.sales), clone(s.saleLines)
	if err := fn(); err != nil {
		s.products, s.lots, s.purchases, s.sales, s.saleLines = products, lots, purchases, sl, lines
		return err
	}
	return nil
}

// catalog.Repository

func (s *store) ListCategories(context.Context) ([]catalog.Category, error) {
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *store) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *store) DeleteCategory(_ context.Context, id int64) error {
	delete(s.categories, id)
	return nil
}

func (s *store) ListSuppliers(context.Context) ([]catalog.Supplier, error) { return nil, nil }

func (s *store) CreateSupplier(_ context.Context, sup catalog.Supplier) (catalog.Supplier, error) {
	sup.ID = s.id()
	return sup, nil
}

func (s *store) DeleteSupplier(context.Context, int64) error { return nil }

func (s *store) ListProducts(_ context.Context, f catalog.ListFilters) ([]catalog.Product, int, error) {
	var out []catalog.Product
	for _, p := range s.products {
		if f.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *store) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (s *store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	p.ID = s.id()
	p.CreatedAt = time.Now()
	s.products[p.ID] = p
	return p, nil
}

func (s *store) UpdateProduct(_ context.Context, p catalog.Product) error {
	current, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", p.ID, shared.ErrNotFound)
	}
	p.Stock, p.AvgCost = current.Stock, current.AvgCost
	s.products[p.ID] = p
	return nil
}

// shared transaction operations

func (s *store) InsertLot(_ context.Context, lot inventory.Lot) (int64, error) {
	lot.ID = s.id()
	s.lots[lot.ID] = lot
	return lot.ID, nil
}

func (s *store) ListOpenLotsForUpdate(_ context.Context, productID int64) ([]inventory.Lot, error) {
	var out []inventory.Lot
	for _, lot := range s.lots {
		if lot.ProductID == productID && lot.Remaining > 0 {
			out = append(out, lot)
		}
	}
	inventory.SortFEFO(out)
	return out, nil
}

func (s *store) UpdateLotRemaining(_ context.Context, lotID int64, remaining int) error {
	lot := s.lots[lotID]
	lot.Remaining = remaining
	s.lots[lotID] = lot
	return nil
}

func (s *store) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *store) SaveProductStock(_ context.Context, p catalog.Product) error {
	s.products[p.ID] = p
	return nil
}

func (s *store) RemainingByProduct(context.Context) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]int{}
	for _, lot := range s.lots {
		out[lot.ProductID] += lot.Remaining
	}
	return out, nil
}

// procurement

type procRepo struct{ *store }

type procTx struct{ *store }

func (r procRepo) WithTx(ctx context.Context, fn func(context.Context, procurement.TxRepository) error) error {
	return r.tx(func() error { return fn(ctx, procTx{r.store}) })
}

func (r procRepo) GetPurchase(_ context.Context, id int64) (procurement.Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return procurement.Purchase{}, fmt.Errorf("purchase %d: %w", id, shared.ErrNotFound)
	}
	p.Lines = r.purchaseLots(id)
	return p, nil
}

func (r procRepo) ListPurchases(context.Context, int, int) ([]procurement.Purchase, int, error) {
	return nil, len(r.purchases), nil
}

func (s *store) purchaseLots(purchaseID int64) []inventory.Lot {
	var out []inventory.Lot
	for _, lot := range s.lots {
		if lot.PurchaseID == purchaseID {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t procTx) CreatePurchase(_ context.Context, supplierID *int64) (procurement.Purchase, error) {
	p := procurement.Purchase{ID: t.id(), SupplierID: supplierID, Total: decimal.Zero, CreatedAt: time.Now()}
	t.purchases[p.ID] = p
	return p, nil
}

func (t procTx) GetPurchaseForUpdate(ctx context.Context, id int64) (procurement.Purchase, error) {
	return procRepo(t).GetPurchase(ctx, id)
}

func (t procTx) ListPurchaseLots(_ context.Context, purchaseID int64) ([]inventory.Lot, error) {
	return t.purchaseLots(purchaseID), nil
}

func (t procTx) UpdatePurchaseTotal(_ context.Context, id int64, total decimal.Decimal) error {
	p := t.purchases[id]
	p.Total = total
	t.purchases[id] = p
	return nil
}

// sales

type salesRepo struct{ *store }

type salesTx struct{ *store }

func (r salesRepo) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	return r.tx(func() error { return fn(ctx, salesTx{r.store}) })
}

func (r salesRepo) GetSale(_ context.Context, id int64) (sales.Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return sales.Sale{}, fmt.Errorf("sale %d: %w", id, shared.ErrNotFound)
	}
	sale.Lines = r.linesOf(id)
	return sale, nil
}

func (r salesRepo) ListSales(context.Context, int, int) ([]sales.Sale, int, error) {
	return nil, len(r.sales), nil
}

func (s *store) linesOf(saleID int64) []sales.SaleLine {
	var out []sales.SaleLine
	for _, l := range s.saleLines {
		if l.SaleID == saleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t salesTx) CreateSale(_ context.Context, sale sales.Sale) (sales.Sale, error) {
	sale.ID = t.id()
	sale.CreatedAt = time.Now()
	t.sales[sale.ID] = sale
	return sale, nil
}

func (t salesTx) GetSaleForUpdate(ctx context.Context, id int64) (sales.Sale, error) {
	return salesRepo(t).GetSale(ctx, id)
}

func (t salesTx) InsertSaleLine(_ context.Context, line sales.SaleLine) (sales.SaleLine, error) {
	line.ID = t.id()
	line.CreatedAt = time.Now()
	t.saleLines[line.ID] = line
	return line, nil
}

func (t salesTx) ListSaleLines(_ context.Context, saleID int64) ([]sales.SaleLine, error) {
	return t.linesOf(saleID), nil
}

func (t salesTx) UpdateSaleTotal(_ context.Context, id int64, total decimal.Decimal) error {
	sale := t.sales[id]
	sale.Total = total
	t.sales[id] = sale
	return nil
}

// analytics.Repository

type reportRepo struct{ *store }

func (r reportRepo) ListProducts(context.Context) ([]analytics.ProductSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analytics.ProductSnapshot, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, analytics.ProductSnapshot{ID: p.ID, Name: p.Name, Brand: p.Brand,
			AvgCost: p.AvgCost, SalePrice: p.SalePrice, Stock: p.Stock, MinStock: p.MinStock})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reportRepo) ListMovements(_ context.Context, period shared.Period) ([]analytics.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []analytics.Movement
	for _, s := range r.sales {
		if period.Contains(s.CreatedAt) {
			out = append(out, analytics.Movement{ID: s.ID, Source: analytics.SourceSale, Date: s.CreatedAt, Amount: s.Total})
		}
	}
	for _, p := range r.purchases {
		if period.Contains(p.CreatedAt) {
			out = append(out, analytics.Movement{ID: p.ID, Source: analytics.SourcePurchase, Date: p.CreatedAt, Amount: p.Total})
		}
	}
	return out, nil
}

func (r reportRepo) ListProductActivity(context.Context) (map[int64]analytics.ProductActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]analytics.ProductActivity{}
	for _, l := range r.saleLines {
		a := out[l.ProductID]
		a.ProductID = l.ProductID
		a.SaleLines++
		out[l.ProductID] = a
	}
	return out, nil
}

func (r reportRepo) ListOpenLots(context.Context) ([]inventory.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Lot
	for _, lot := range r.lots {
		if lot.Remaining > 0 {
			out = append(out, lot)
		}
	}
	inventory.SortFEFO(out)
	return out, nil
}
