package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Purchase is a stock receipt from a supplier. Total is derived from its lines.
type Purchase struct {
	ID         int64           `json:"id"`
	SupplierID *int64          `json:"supplier_id"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	Lines      []inventory.Lot `json:"lines,omitempty"`
}

// CreatePurchaseInput describes a purchase header with optional lines.
type CreatePurchaseInput struct {
	SupplierID *int64
	Lines      []LineInput
}

// LineInput describes one received lot.
type LineInput struct {
	ProductID  int64
	Quantity   int
	UnitCost   decimal.Decimal
	ExpiryDate time.Time
	Batch      string
}

// PurchaseTotal folds the lines of a purchase into its total.
func PurchaseTotal(lines []inventory.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(shared.LineTotal(line.Quantity, line.UnitCost))
	}
	return shared.RoundMoney(total)
}
