package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyPlaces is the number of decimal places kept for monetary values.
const MoneyPlaces = 2

// CurrencySuffix is appended when money is shown to people.
const CurrencySuffix = "Kz"

var moneyPrinter = message.NewPrinter(language.Portuguese)

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineTotal multiplies a quantity by a unit value and rounds the result.
func LineTotal(qty int, unit decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(int64(qty)).Mul(unit))
}

// FormatMoney renders an amount with grouping and the currency suffix, e.g. "1.234,50 Kz".
func FormatMoney(d decimal.Decimal) string {
	f, _ := RoundMoney(d).Float64()
	return moneyPrinter.Sprintf("%v %s", number.Decimal(f, number.Scale(MoneyPlaces)), CurrencySuffix)
}
