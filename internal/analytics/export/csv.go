package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gestao-cosmeticos/gestao/internal/analytics"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Table is a report flattened into a header and string rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// LedgerTable flattens the extrato.
func LedgerTable(entries []analytics.LedgerEntry) Table {
	t := Table{Name: "Extrato", Header: []string{"Data", "Tipo", "Origem", "Descrição", "Valor", "Saldo"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.Date.Format(shared.DateLayout),
			e.Direction,
			e.Source,
			e.Description,
			e.Amount.StringFixed(shared.MoneyPlaces),
			e.Balance.StringFixed(shared.MoneyPlaces),
		})
	}
	return t
}

// MonthlyTable flattens the monthly report.
func MonthlyTable(rows []analytics.MonthlyRow) Table {
	t := Table{Name: "Mensal", Header: []string{"Mês", "Vendas", "Saídas", "Lucro"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Month,
			r.Sales.StringFixed(shared.MoneyPlaces),
			r.Outflow.StringFixed(shared.MoneyPlaces),
			r.Profit.StringFixed(shared.MoneyPlaces),
		})
	}
	return t
}

// ProductsTable flattens the product analytics rows.
func ProductsTable(rows []analytics.ProductRow) Table {
	t := Table{Name: "Produtos", Header: []string{
		"ID", "Produto", "Marca", "Categoria", "Stock", "Custo Médio", "Preço",
		"Lucro Unitário", "Margem %", "Valor em Stock", "Classe", "Rotação", "Validade",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.Brand,
			r.Category,
			strconv.Itoa(r.Stock),
			r.AvgCost.StringFixed(shared.MoneyPlaces),
			r.SalePrice.StringFixed(shared.MoneyPlaces),
			r.Profit.StringFixed(shared.MoneyPlaces),
			r.MarginPercent.StringFixed(shared.MoneyPlaces),
			r.StockValue.StringFixed(shared.MoneyPlaces),
			r.Class,
			r.Turnover,
			string(r.Expiry),
		})
	}
	return t
}

// WriteCSV serialises the table as CSV.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(t.Header); err != nil {
		return err
	}
	for _, record := range t.Rows {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
