package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

const saleLineQuery = `SELECT l.id, l.sale_id, l.product_id, p.name, p.brand, l.quantity, l.unit_price, l.created_at
	FROM sale_lines l JOIN products p ON p.id = l.product_id
	WHERE l.sale_id = $1 ORDER BY l.id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*inventory.PgLotStore
	*catalog.StockStore
	tx pgx.Tx
}

// WithTx runs callback in a read-committed transaction. Rows the callback
// changes are locked with SELECT ... FOR UPDATE.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			PgLotStore: inventory.NewPgLotStore(tx),
			StockStore: catalog.NewStockStore(tx),
			tx:         tx,
		})
	})
}

// GetSale returns a sale and its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	sale, err := getSale(ctx, r.pool, id, false)
	if err != nil {
		return Sale{}, err
	}
	sale.Lines, err = listLines(ctx, r.pool, id)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ListSales returns a page of sale headers, newest first.
func (r *Repository) ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, operator_id, payment_method, total, created_at FROM sales
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, scanSale)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (t *txRepo) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (operator_id, payment_method, total) VALUES (NULLIF($1::bigint, 0), $2, $3)
		RETURNING id, created_at`, sale.OperatorID, string(sale.PaymentMethod), sale.Total).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return Sale{}, db.MapError(err, "sale")
	}
	return sale, nil
}

func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return getSale(ctx, t.tx, id, true)
}

func (t *txRepo) InsertSaleLine(ctx context.Context, line SaleLine) (SaleLine, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, line.SaleID, line.ProductID, line.Quantity, line.UnitPrice).Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return SaleLine{}, db.MapError(err, "sale line")
	}
	return line, nil
}

func (t *txRepo) ListSaleLines(ctx context.Context, saleID int64) ([]SaleLine, error) {
	return listLines(ctx, t.tx, saleID)
}

func (t *txRepo) UpdateSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET total = $1 WHERE id = $2`, total, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func getSale(ctx context.Context, q db.Querier, id int64, lock bool) (Sale, error) {
	query := `SELECT id, operator_id, payment_method, total, created_at FROM sales WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return Sale{}, err
	}
	sale, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		return Sale{}, db.MapError(err, fmt.Sprintf("sale %d", id))
	}
	return sale, nil
}

func listLines(ctx context.Context, q db.Querier, saleID int64) ([]SaleLine, error) {
	rows, err := q.Query(ctx, saleLineQuery, saleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SaleLine, error) {
		var l SaleLine
		err := row.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.ProductBrand, &l.Quantity, &l.UnitPrice, &l.CreatedAt)
		return l, err
	})
}

func scanSale(row pgx.CollectableRow) (Sale, error) {
	var (
		s        Sale
		operator *int64
		method   string
	)
	if err := row.Scan(&s.ID, &operator, &method, &s.Total, &s.CreatedAt); err != nil {
		return Sale{}, err
	}
	if operator != nil {
		s.OperatorID = *operator
	}
	s.PaymentMethod = PaymentMethod(method)
	return s, nil
}
