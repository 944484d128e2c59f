package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// RecomputeAverageCost applies the moving weighted average for an incoming lot.
// The existing cost is returned untouched when the combined quantity is zero.
func RecomputeAverageCost(existingQty int, existingAvg decimal.Decimal, incomingQty int, incomingCost decimal.Decimal) decimal.Decimal {
	total := existingQty + incomingQty
	if total == 0 {
		return existingAvg
	}
	value := decimal.NewFromInt(int64(existingQty)).Mul(existingAvg).
		Add(decimal.NewFromInt(int64(incomingQty)).Mul(incomingCost))
	return shared.RoundMoney(value.Div(decimal.NewFromInt(int64(total))))
}

// Margin returns the absolute profit per unit and the markup over cost in percent.
// A product without cost yields zero for both.
func Margin(avgCost, salePrice decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !avgCost.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	profit := salePrice.Sub(avgCost)
	percent := profit.Div(avgCost).Mul(hundred)
	return shared.RoundMoney(profit), shared.RoundMoney(percent)
}

// StockValue is the inventory value held for a product.
func StockValue(stock int, avgCost decimal.Decimal) decimal.Decimal {
	return shared.LineTotal(stock, avgCost)
}
