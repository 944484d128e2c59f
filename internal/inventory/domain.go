package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// ExpiryStatus classifies a product by its earliest expiring open lot.
type ExpiryStatus string

const (
	// ExpiryExpired marks a product whose next lot is past its expiry date.
	ExpiryExpired ExpiryStatus = "EXPIRED"
	// ExpiryNear marks a product whose next lot expires inside the alert window.
	ExpiryNear ExpiryStatus = "NEAR_EXPIRY"
	// ExpiryOK marks a product whose next lot is outside the alert window.
	ExpiryOK ExpiryStatus = "OK"
	// ExpiryNoStock marks a product without open lots.
	ExpiryNoStock ExpiryStatus = "NO_STOCK"
)

// Lot is a purchase line seen as a discrete batch of stock.
type Lot struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate time.Time       `json:"expiry_date"`
	Remaining  int             `json:"remaining"`
	Batch      string          `json:"batch,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewLot describes a lot about to be received.
type NewLot struct {
	PurchaseID int64
	ProductID  int64
	Quantity   int
	UnitCost   decimal.Decimal
	ExpiryDate time.Time
	Batch      string
}

// Allocation records how many units one consumption took from a lot.
type Allocation struct {
	LotID      int64     `json:"lot_id"`
	ExpiryDate time.Time `json:"expiry_date"`
	Taken      int       `json:"taken"`
	Remaining  int       `json:"remaining"`
}

// ErrInvalidQuantity indicates a non positive quantity.
var ErrInvalidQuantity = shared.NewValidationError("quantity", "must be positive")

// ErrInvalidUnitCost indicates invalid cost value.
var ErrInvalidUnitCost = shared.NewValidationError("unit_cost", "must be >= 0")

// ErrExpiryRequired indicates a lot received without expiry date.
var ErrExpiryRequired = shared.NewValidationError("expiry_date", "required")
