package finance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx backed finance repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

func table(kind Kind) string {
	if kind == KindRevenue {
		return "extra_revenues"
	}
	return "expenses"
}

func (r *repo) Insert(ctx context.Context, entry Entry) (Entry, error) {
	query := fmt.Sprintf(`INSERT INTO %s (description, amount, date) VALUES ($1, $2, $3) RETURNING id, created_at`, table(entry.Kind))
	if err := r.pool.QueryRow(ctx, query, entry.Description, entry.Amount, entry.Date).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return Entry{}, db.MapError(err, string(entry.Kind))
	}
	return entry, nil
}

func (r *repo) List(ctx context.Context, kind Kind, period shared.Period) ([]Entry, error) {
	clause, args := db.PeriodFilter("date", period, nil)
	query := fmt.Sprintf(`SELECT id, description, amount, date, created_at FROM %s WHERE %s ORDER BY date DESC, id DESC`, table(kind), clause)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		e := Entry{Kind: kind}
		err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.Date, &e.CreatedAt)
		return e, err
	})
}
