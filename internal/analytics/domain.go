package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
)

// ABC price classes.
const (
	ClassA = "A"
	ClassB = "B"
	ClassC = "C"
)

// Turnover statuses.
const (
	TurnoverFast     = "FAST"
	TurnoverNormal   = "NORMAL"
	TurnoverRecent   = "RECENT"
	TurnoverStagnant = "STAGNANT"
)

// Ledger directions.
const (
	DirectionIn  = "ENTRADA"
	DirectionOut = "SAIDA"
)

// Movement sources.
const (
	SourceSale     = "SALE"
	SourceRevenue  = "REVENUE"
	SourcePurchase = "PURCHASE"
	SourceExpense  = "EXPENSE"
)

// ProductSnapshot is the product data reports read.
type ProductSnapshot struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"min_stock"`
}

// ProductActivity counts sale lines and the latest purchase of a product.
type ProductActivity struct {
	ProductID      int64
	SaleLines      int
	LastPurchaseAt *time.Time
}

// Movement is one cash document: a sale, an extra revenue, a purchase or an expense.
type Movement struct {
	ID          int64           `json:"id"`
	Source      string          `json:"source"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Inflow reports whether the movement brings money in.
func (m Movement) Inflow() bool {
	return m.Source == SourceSale || m.Source == SourceRevenue
}

// CashSummary totals cash movements over a period.
type CashSummary struct {
	Sales     decimal.Decimal `json:"sales"`
	Revenues  decimal.Decimal `json:"extra_revenues"`
	Purchases decimal.Decimal `json:"purchases"`
	Expenses  decimal.Decimal `json:"expenses"`
	Inflow    decimal.Decimal `json:"inflow"`
	Outflow   decimal.Decimal `json:"outflow"`
	Net       decimal.Decimal `json:"net"`
}

// LedgerEntry is one extrato line with the balance after it.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Direction   string          `json:"direction"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

// MonthlyRow is one month of the monthly report.
type MonthlyRow struct {
	Month   string          `json:"month"`
	Sales   decimal.Decimal `json:"sales"`
	Outflow decimal.Decimal `json:"outflow"`
	Profit  decimal.Decimal `json:"profit"`
}

// MonthSummary is the financial summary of the current month.
type MonthSummary struct {
	Month          string          `json:"month"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	Revenue        decimal.Decimal `json:"revenue"`
	Cost           decimal.Decimal `json:"cost"`
	Net            decimal.Decimal `json:"net"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
}

// ProductRow is the per-product analytics line.
type ProductRow struct {
	ProductSnapshot
	Profit        decimal.Decimal        `json:"profit"`
	MarginPercent decimal.Decimal        `json:"margin_percent"`
	StockValue    decimal.Decimal        `json:"stock_value"`
	Class         string                 `json:"abc_class"`
	Turnover      string                 `json:"turnover"`
	Expiry        inventory.ExpiryStatus `json:"expiry_status"`
	NextExpiry    *time.Time             `json:"next_expiry,omitempty"`
	LowStock      bool                   `json:"low_stock"`
}

// ExpiryAlert points at an open lot close to or past its expiry date.
type ExpiryAlert struct {
	LotID      int64                  `json:"lot_id"`
	ProductID  int64                  `json:"product_id"`
	Product    string                 `json:"product"`
	ExpiryDate time.Time              `json:"expiry_date"`
	Remaining  int                    `json:"remaining"`
	Status     inventory.ExpiryStatus `json:"status"`
}

// Alerts groups low stock products and expiring lots.
type Alerts struct {
	LowStock []ProductSnapshot `json:"low_stock"`
	Expiring []ExpiryAlert     `json:"expiring"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Cash           CashSummary     `json:"cash"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	WorkingCapital decimal.Decimal `json:"working_capital"`
	Healthy        bool            `json:"healthy"`
	Alerts         Alerts          `json:"alerts"`
}
