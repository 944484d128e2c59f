package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// StockStore reads and writes the stock columns of a product inside a movement
// transaction. The purchase and sale coordinators embed it in their own stores.
type StockStore struct {
	q db.Querier
}

// NewStockStore binds a StockStore to a transaction.
func NewStockStore(q db.Querier) *StockStore {
	return &StockStore{q: q}
}

// GetProductForUpdate loads a product and locks its row until the transaction ends.
func (s *StockStore) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return Product{}, db.MapError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

// SaveProductStock persists stock and average cost after a movement.
func (s *StockStore) SaveProductStock(ctx context.Context, p Product) error {
	tag, err := s.q.Exec(ctx, `UPDATE products SET stock = $1, avg_cost = $2, updated_at = NOW() WHERE id = $3`,
		p.Stock, p.AvgCost, p.ID)
	if err != nil {
		return db.MapError(err, "product")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", p.ID, shared.ErrNotFound)
	}
	return nil
}
