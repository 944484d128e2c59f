package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

var (
	classAThreshold = decimal.NewFromInt(5000)
	classBThreshold = decimal.NewFromInt(2000)
	hundred         = decimal.NewFromInt(100)
)

const (
	fastSaleLines    = 10
	recentPurchaseIn = 7 * 24 * time.Hour
	monthLayout      = "2006-01"
)

// ClassifyABC buckets a product by sale price.
func ClassifyABC(salePrice decimal.Decimal) string {
	switch {
	case salePrice.GreaterThanOrEqual(classAThreshold):
		return ClassA
	case salePrice.GreaterThanOrEqual(classBThreshold):
		return ClassB
	default:
		return ClassC
	}
}

// ClassifyTurnover rates how a product moves from its sale line count and
// the date of its latest purchase.
func ClassifyTurnover(saleLines int, lastPurchaseAt *time.Time, now time.Time) string {
	switch {
	case saleLines > fastSaleLines:
		return TurnoverFast
	case saleLines > 0:
		return TurnoverNormal
	case lastPurchaseAt != nil && now.Sub(*lastPurchaseAt) <= recentPurchaseIn:
		return TurnoverRecent
	default:
		return TurnoverStagnant
	}
}

// InventoryValue sums stock times average cost.
func InventoryValue(products []ProductSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(inventory.StockValue(p.Stock, p.AvgCost))
	}
	return shared.RoundMoney(total)
}

// SummarizeCash folds movements into inflow, outflow and net.
func SummarizeCash(movements []Movement) CashSummary {
	s := CashSummary{
		Sales:     decimal.Zero,
		Revenues:  decimal.Zero,
		Purchases: decimal.Zero,
		Expenses:  decimal.Zero,
	}
	for _, m := range movements {
		switch m.Source {
		case SourceSale:
			s.Sales = s.Sales.Add(m.Amount)
		case SourceRevenue:
			s.Revenues = s.Revenues.Add(m.Amount)
		case SourcePurchase:
			s.Purchases = s.Purchases.Add(m.Amount)
		case SourceExpense:
			s.Expenses = s.Expenses.Add(m.Amount)
		}
	}
	s.Inflow = shared.RoundMoney(s.Sales.Add(s.Revenues))
	s.Outflow = shared.RoundMoney(s.Purchases.Add(s.Expenses))
	s.Net = s.Inflow.Sub(s.Outflow)
	return s
}

// BuildLedger accumulates the running balance in chronological order and
// returns the entries newest first.
func BuildLedger(movements []Movement) []LedgerEntry {
	ordered := append([]Movement(nil), movements...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})
	entries := make([]LedgerEntry, len(ordered))
	balance := decimal.Zero
	for i, m := range ordered {
		direction := DirectionOut
		if m.Inflow() {
			direction = DirectionIn
			balance = balance.Add(m.Amount)
		} else {
			balance = balance.Sub(m.Amount)
		}
		entries[len(ordered)-1-i] = LedgerEntry{
			ID:          m.ID,
			Date:        m.Date,
			Direction:   direction,
			Source:      m.Source,
			Description: m.Description,
			Amount:      m.Amount,
			Balance:     balance,
		}
	}
	return entries
}

// BuildMonthly reports every month that has sales, newest first. Profit is
// sales minus purchases and expenses of the same month.
func BuildMonthly(movements []Movement) []MonthlyRow {
	rows := map[string]*MonthlyRow{}
	get := func(month string) *MonthlyRow {
		row, ok := rows[month]
		if !ok {
			row = &MonthlyRow{Month: month, Sales: decimal.Zero, Outflow: decimal.Zero}
			rows[month] = row
		}
		return row
	}
	hasSales := map[string]bool{}
	for _, m := range movements {
		month := m.Date.Format(monthLayout)
		switch m.Source {
		case SourceSale:
			get(month).Sales = get(month).Sales.Add(m.Amount)
			hasSales[month] = true
		case SourcePurchase, SourceExpense:
			get(month).Outflow = get(month).Outflow.Add(m.Amount)
		}
	}
	out := make([]MonthlyRow, 0, len(hasSales))
	for month := range hasSales {
		row := *rows[month]
		row.Profit = row.Sales.Sub(row.Outflow)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// SummarizeMonth builds the month summary from that month's movements.
// The margin is net over revenue, zero when there is no revenue.
func SummarizeMonth(month time.Time, movements []Movement, inventoryValue decimal.Decimal) MonthSummary {
	cash := SummarizeCash(movements)
	summary := MonthSummary{
		Month:          month.Format(monthLayout),
		InventoryValue: inventoryValue,
		Revenue:        cash.Inflow,
		Cost:           cash.Outflow,
		Net:            cash.Net,
		MarginPercent:  decimal.Zero,
	}
	if cash.Inflow.IsPositive() {
		summary.MarginPercent = shared.RoundMoney(cash.Net.Div(cash.Inflow).Mul(hundred))
	}
	return summary
}

// BuildProductRows derives margin, value, class, turnover and expiry per product.
func BuildProductRows(products []ProductSnapshot, activity map[int64]ProductActivity, lots []inventory.Lot, today time.Time, nearDays int) []ProductRow {
	lotsByProduct := map[int64][]inventory.Lot{}
	for _, lot := range lots {
		lotsByProduct[lot.ProductID] = append(lotsByProduct[lot.ProductID], lot)
	}
	rows := make([]ProductRow, 0, len(products))
	for _, p := range products {
		profit, percent := inventory.Margin(p.AvgCost, p.SalePrice)
		act := activity[p.ID]
		row := ProductRow{
			ProductSnapshot: p,
			Profit:          profit,
			MarginPercent:   percent,
			StockValue:      inventory.StockValue(p.Stock, p.AvgCost),
			Class:           ClassifyABC(p.SalePrice),
			Turnover:        ClassifyTurnover(act.SaleLines, act.LastPurchaseAt, today),
			Expiry:          inventory.ClassifyExpiryWithin(lotsByProduct[p.ID], today, nearDays),
			LowStock:        p.Stock <= p.MinStock,
		}
		if next, ok := inventory.EarliestOpenLot(lotsByProduct[p.ID]); ok {
			expiry := next.ExpiryDate
			row.NextExpiry = &expiry
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildAlerts lists low stock products and open lots expiring within nearDays,
// earliest expiry first.
func BuildAlerts(products []ProductSnapshot, lots []inventory.Lot, today time.Time, nearDays int) Alerts {
	alerts := Alerts{LowStock: []ProductSnapshot{}, Expiring: []ExpiryAlert{}}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name + " " + p.Brand
		if p.Stock <= p.MinStock {
			alerts.LowStock = append(alerts.LowStock, p)
		}
	}
	open := make([]inventory.Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.Remaining > 0 {
			open = append(open, lot)
		}
	}
	inventory.SortFEFO(open)
	for _, lot := range open {
		status := inventory.ClassifyDate(lot.ExpiryDate, today, nearDays)
		if status == inventory.ExpiryOK {
			continue
		}
		alerts.Expiring = append(alerts.Expiring, ExpiryAlert{
			LotID:      lot.ID,
			ProductID:  lot.ProductID,
			Product:    names[lot.ProductID],
			ExpiryDate: lot.ExpiryDate,
			Remaining:  lot.Remaining,
			Status:     status,
		})
	}
	return alerts
}

// BuildDashboard combines cash, inventory value and alerts.
func BuildDashboard(cash CashSummary, inventoryValue decimal.Decimal, alerts Alerts) Dashboard {
	return Dashboard{
		Cash:           cash,
		InventoryValue: inventoryValue,
		WorkingCapital: cash.Net.Add(inventoryValue),
		Healthy:        !cash.Net.IsNegative(),
		Alerts:         alerts,
	}
}
