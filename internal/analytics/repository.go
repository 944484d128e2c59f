package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Repository exposes the read queries reports are built from.
type Repository interface {
	ListProducts(ctx context.Context) ([]ProductSnapshot, error)
	ListMovements(ctx context.Context, period shared.Period) ([]Movement, error)
	ListProductActivity(ctx context.Context) (map[int64]ProductActivity, error)
	ListOpenLots(ctx context.Context) ([]inventory.Lot, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
	lots *inventory.PgLotStore
}

// NewRepository builds the pgx backed report repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, lots: inventory.NewPgLotStore(pool)}
}

func (r *pgRepository) ListProducts(ctx context.Context) ([]ProductSnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.brand, COALESCE(c.name, ''), p.avg_cost, p.sale_price, p.stock, p.min_stock
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.name, p.brand`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductSnapshot, error) {
		var p ProductSnapshot
		err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.AvgCost, &p.SalePrice, &p.Stock, &p.MinStock)
		return p, err
	})
}

// ListMovements unions the four cash documents. Sales and purchases are dated by
// their creation time, expenses and extra revenues by their own date.
func (r *pgRepository) ListMovements(ctx context.Context, period shared.Period) ([]Movement, error) {
	var args []any
	var salesWhere, purchasesWhere, expensesWhere, revenuesWhere string
	salesWhere, args = db.PeriodFilter("created_at", period, args)
	purchasesWhere, args = db.PeriodFilter("created_at", period, args)
	expensesWhere, args = db.PeriodFilter("date", period, args)
	revenuesWhere, args = db.PeriodFilter("date", period, args)

	query := fmt.Sprintf(`
		SELECT id, '%s', created_at, 'Venda #' || id, total FROM sales WHERE %s
		UNION ALL
		SELECT id, '%s', created_at, 'Compra #' || id, total FROM purchases WHERE %s
		UNION ALL
		SELECT id, '%s', date::timestamptz, description, amount FROM expenses WHERE %s
		UNION ALL
		SELECT id, '%s', date::timestamptz, description, amount FROM extra_revenues WHERE %s`,
		SourceSale, salesWhere,
		SourcePurchase, purchasesWhere,
		SourceExpense, expensesWhere,
		SourceRevenue, revenuesWhere)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Movement, error) {
		var m Movement
		err := row.Scan(&m.ID, &m.Source, &m.Date, &m.Description, &m.Amount)
		return m, err
	})
}

func (r *pgRepository) ListProductActivity(ctx context.Context) (map[int64]ProductActivity, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id,
			(SELECT COUNT(*) FROM sale_lines sl WHERE sl.product_id = p.id),
			(SELECT MAX(pu.created_at) FROM purchase_lines pl JOIN purchases pu ON pu.id = pl.purchase_id WHERE pl.product_id = p.id)
		FROM products p`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]ProductActivity{}
	for rows.Next() {
		var (
			a    ProductActivity
			last *time.Time
		)
		if err := rows.Scan(&a.ProductID, &a.SaleLines, &last); err != nil {
			return nil, err
		}
		a.LastPurchaseAt = last
		out[a.ProductID] = a
	}
	return out, rows.Err()
}

func (r *pgRepository) ListOpenLots(ctx context.Context) ([]inventory.Lot, error) {
	return r.lots.ListOpenLots(ctx)
}
