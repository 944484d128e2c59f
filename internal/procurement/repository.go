package procurement

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

// GetPurchase returns a purchase and its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, err := getPurchase(ctx, r.pool, id, false)
	if err != nil {
		return Purchase{}, err
	}
	p.Lines, err = inventory.NewPgLotStore(r.pool).ListPurchaseLots(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// ListPurchases returns a page of purchase headers, newest first.
func (r *Repository) ListPurchases(ctx context.Context, limit, offset int) ([]Purchase, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_id, total, created_at FROM purchases
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, scanPurchase)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (t *txRepo) CreatePurchase(ctx context.Context, supplierID *int64) (Purchase, error) {
	p := Purchase{SupplierID: supplierID, Total: decimal.Zero}
	err := t.tx.QueryRow(ctx, `INSERT INTO purchases (supplier_id, total) VALUES ($1, 0) RETURNING id, created_at`, supplierID).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Purchase{}, db.MapError(err, "purchase")
	}
	return p, nil
}

func (t *txRepo) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	return getPurchase(ctx, t.tx, id, true)
}

func (t *txRepo) UpdatePurchaseTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchases SET total = $1 WHERE id = $2`, total, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func getPurchase(ctx context.Context, q db.Querier, id int64, lock bool) (Purchase, error) {
	query := `SELECT id, supplier_id, total, created_at FROM purchases WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return Purchase{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPurchase)
	if err != nil {
		return Purchase{}, db.MapError(err, fmt.Sprintf("purchase %d", id))
	}
	return p, nil
}

func scanPurchase(row pgx.CollectableRow) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.SupplierID, &p.Total, &p.CreatedAt)
	return p, err
}
