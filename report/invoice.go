package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/sales"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

//go:embed templates/invoice.html
var templates embed.FS

var paymentLabels = map[sales.PaymentMethod]string{
	sales.PaymentCash:     "Dinheiro",
	sales.PaymentCard:     "Cartão",
	sales.PaymentTransfer: "Transferência",
}

// InvoiceRenderer turns invoices into printable HTML.
type InvoiceRenderer struct {
	store string
	tpl   *template.Template
}

type invoicePage struct {
	Store   string
	Number  string
	Invoice sales.Invoice
}

// NewInvoiceRenderer parses the embedded invoice template. store is printed as the heading.
func NewInvoiceRenderer(store string) (*InvoiceRenderer, error) {
	funcMap := template.FuncMap{
		"money": func(d decimal.Decimal) string { return shared.FormatMoney(d) },
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"paymentLabel": func(m sales.PaymentMethod) string {
			if label, ok := paymentLabels[m]; ok {
				return label
			}
			return string(m)
		},
	}
	tpl, err := template.New("invoice.html").Funcs(funcMap).ParseFS(templates, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &InvoiceRenderer{store: store, tpl: tpl}, nil
}

// InvoiceNumber formats the printed invoice number for a sale.
func InvoiceNumber(sale sales.Sale) string {
	return fmt.Sprintf("FT %d/%06d", sale.CreatedAt.Year(), sale.ID)
}

// HTML renders the invoice document.
func (r *InvoiceRenderer) HTML(inv sales.Invoice) (string, error) {
	var buf bytes.Buffer
	page := invoicePage{Store: r.store, Number: InvoiceNumber(inv.Sale), Invoice: inv}
	if err := r.tpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("render invoice %d: %w", inv.Sale.ID, err)
	}
	return buf.String(), nil
}
