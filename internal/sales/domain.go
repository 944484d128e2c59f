package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// PaymentMethod is how a sale was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether the method is one of the accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Sale is a customer transaction. Total is derived from its lines.
type Sale struct {
	ID            int64           `json:"id"`
	OperatorID    int64           `json:"operator_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []SaleLine      `json:"lines,omitempty"`
}

// SaleLine is one product sold. UnitPrice is the product sale price at the time
// the line was recorded.
type SaleLine struct {
	ID           int64                  `json:"id"`
	SaleID       int64                  `json:"sale_id"`
	ProductID    int64                  `json:"product_id"`
	ProductName  string                 `json:"product_name,omitempty"`
	ProductBrand string                 `json:"product_brand,omitempty"`
	Quantity     int                    `json:"quantity"`
	UnitPrice    decimal.Decimal        `json:"unit_price"`
	CreatedAt    time.Time              `json:"created_at"`
	Allocations  []inventory.Allocation `json:"allocations,omitempty"`
}

// Subtotal is quantity times unit price.
func (l SaleLine) Subtotal() decimal.Decimal {
	return shared.LineTotal(l.Quantity, l.UnitPrice)
}

// LineInput describes a product and quantity to sell.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// CheckoutInput records a whole sale in one call.
type CheckoutInput struct {
	PaymentMethod PaymentMethod
	Lines         []LineInput
}

// SaleTotal folds sale lines into the sale total.
func SaleTotal(lines []SaleLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return shared.RoundMoney(total)
}

// InvoiceLine is a sale line as printed on the invoice.
type InvoiceLine struct {
	SaleLine
	LineTotal decimal.Decimal `json:"line_total"`
}

// Invoice is the printable view of a sale.
type Invoice struct {
	Sale  Sale            `json:"sale"`
	Lines []InvoiceLine   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}
