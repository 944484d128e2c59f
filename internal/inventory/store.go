package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

const lotColumns = `id, purchase_id, product_id, quantity, unit_cost, expiry_date, remaining, COALESCE(batch, ''), created_at`

// PgLotStore implements LotStore on the purchase_lines table.
type PgLotStore struct {
	q db.Querier
}

// NewPgLotStore binds the store to a pool or a transaction.
func NewPgLotStore(q db.Querier) *PgLotStore {
	return &PgLotStore{q: q}
}

// InsertLot stores a received lot and returns its id.
func (s *PgLotStore) InsertLot(ctx context.Context, lot Lot) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO purchase_lines (purchase_id, product_id, quantity, unit_cost, expiry_date, remaining, batch)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')) RETURNING id`,
		lot.PurchaseID, lot.ProductID, lot.Quantity, lot.UnitCost, lot.ExpiryDate, lot.Remaining, lot.Batch).Scan(&id)
	if err != nil {
		return 0, db.MapError(err, "purchase line")
	}
	return id, nil
}

// ListOpenLotsForUpdate locks the product's lots that still hold units, FEFO ordered.
func (s *PgLotStore) ListOpenLotsForUpdate(ctx context.Context, productID int64) ([]Lot, error) {
	rows, err := s.q.Query(ctx, `SELECT `+lotColumns+` FROM purchase_lines
		WHERE product_id = $1 AND remaining > 0
		ORDER BY expiry_date ASC, id ASC
		FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLot)
}

// UpdateLotRemaining writes the remaining units of a lot.
func (s *PgLotStore) UpdateLotRemaining(ctx context.Context, lotID int64, remaining int) error {
	tag, err := s.q.Exec(ctx, `UPDATE purchase_lines SET remaining = $1 WHERE id = $2`, remaining, lotID)
	if err != nil {
		return db.MapError(err, "purchase line")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase line %d: %w", lotID, shared.ErrNotFound)
	}
	return nil
}

// ListPurchaseLots returns every line of a purchase in insertion order.
func (s *PgLotStore) ListPurchaseLots(ctx context.Context, purchaseID int64) ([]Lot, error) {
	rows, err := s.q.Query(ctx, `SELECT `+lotColumns+` FROM purchase_lines WHERE purchase_id = $1 ORDER BY id`, purchaseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLot)
}

// ListOpenLots returns lots that still hold units across all products.
func (s *PgLotStore) ListOpenLots(ctx context.Context) ([]Lot, error) {
	rows, err := s.q.Query(ctx, `SELECT `+lotColumns+` FROM purchase_lines WHERE remaining > 0 ORDER BY expiry_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLot)
}

// RemainingByProduct sums open units per product.
func (s *PgLotStore) RemainingByProduct(ctx context.Context) (map[int64]int, error) {
	rows, err := s.q.Query(ctx, `SELECT product_id, COALESCE(SUM(remaining), 0) FROM purchase_lines GROUP BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]int{}
	for rows.Next() {
		var productID int64
		var remaining int
		if err := rows.Scan(&productID, &remaining); err != nil {
			return nil, err
		}
		out[productID] = remaining
	}
	return out, rows.Err()
}

func scanLot(row pgx.CollectableRow) (Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.PurchaseID, &l.ProductID, &l.Quantity, &l.UnitCost, &l.ExpiryDate, &l.Remaining, &l.Batch, &l.CreatedAt)
	return l, err
}
