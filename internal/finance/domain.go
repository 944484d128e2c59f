package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Kind distinguishes the two flat ledgers.
type Kind string

const (
	KindExpense Kind = "expense"
	KindRevenue Kind = "revenue"
)

// Entry is an expense or an extra revenue. Neither touches stock.
type Entry struct {
	ID          int64           `json:"id"`
	Kind        Kind            `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EntryInput is the payload for a new entry.
type EntryInput struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

// Repository persists expenses and extra revenues.
type Repository interface {
	Insert(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, kind Kind, period shared.Period) ([]Entry, error)
}
