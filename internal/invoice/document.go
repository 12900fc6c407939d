// Package invoice builds, renders and prints invoices for completed sales.
package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/config"
	"github.com/noah-isme/pos-terminal/internal/pricing"
)

// WalkInCustomer is printed when no customer name was entered.
const WalkInCustomer = "Walk-in Customer"

// Line is one printed row.
type Line struct {
	Name               string          `json:"name"`
	SKU                string          `json:"sku"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Total              decimal.Decimal `json:"total"`
}

// Document is everything needed to render an invoice. It is built once per
// sale and handed to a printer; nothing keeps it afterwards.
type Document struct {
	Number          string          `json:"number"`
	IssuedAt        time.Time       `json:"issued_at"`
	Business        config.Business `json:"business"`
	BillTo          string          `json:"bill_to"`
	Lines           []Line          `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VoucherPercent  decimal.Decimal `json:"voucher_percent"`
	VoucherDiscount decimal.Decimal `json:"voucher_discount"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	Footer          []string        `json:"footer"`
}

// HasVoucher reports whether the voucher row should be printed.
func (d Document) HasVoucher() bool { return d.VoucherPercent.IsPositive() }

// Build assembles the document for a sale from the cart snapshot taken before
// submission.
func Build(state cart.State, summary pricing.Summary, number string, issuedAt time.Time, business config.Business) Document {
	lines := make([]Line, 0, len(state.Items))
	for _, item := range state.Items {
		lines = append(lines, Line{
			Name:               item.Name,
			SKU:                item.SKUCode,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			DiscountPercentage: item.DiscountPercentage,
			Total:              item.Total(),
		})
	}
	return Document{
		Number:          number,
		IssuedAt:        issuedAt,
		Business:        business,
		BillTo:          billTo(state.CustomerName),
		Lines:           lines,
		Subtotal:        summary.Subtotal,
		VoucherPercent:  summary.VoucherPercent,
		VoucherDiscount: summary.VoucherDiscount,
		GrandTotal:      summary.GrandTotal,
		Footer:          footer(business),
	}
}

// FromDetail rebuilds a document from an invoice stored upstream, for reprints.
// The store API keeps only the total, so no voucher row is shown; any gap
// between the line sum and the stored total is printed as a discount.
func FromDetail(d Detail, business config.Business) Document {
	lines := make([]Line, 0, len(d.Items))
	plines := make([]pricing.Line, 0, len(d.Items))
	for _, item := range d.Items {
		pl := pricing.Line{UnitPrice: item.SellingPrice, Quantity: item.Quantity}
		plines = append(plines, pl)
		lines = append(lines, Line{
			Name:               item.ProductName,
			SKU:                item.SKUCode,
			Quantity:           item.Quantity,
			UnitPrice:          item.SellingPrice,
			DiscountPercentage: item.DiscountPercentage,
			Total:              pricing.LineTotal(pl),
		})
	}
	subtotal := pricing.Subtotal(plines)
	total := d.TotalAmount
	if total.IsZero() && len(lines) > 0 {
		total = subtotal
	}
	doc := Document{
		Number:     d.InvoiceNumber,
		IssuedAt:   d.CreatedAt,
		Business:   business,
		BillTo:     billTo(d.CustomerName),
		Lines:      lines,
		Subtotal:   subtotal,
		GrandTotal: total,
		Footer:     footer(business),
	}
	if gap := subtotal.Sub(total); gap.IsPositive() {
		doc.VoucherDiscount = gap
		if subtotal.IsPositive() {
			doc.VoucherPercent = gap.Mul(decimal.NewFromInt(100)).Div(subtotal).Round(2)
		}
	}
	return doc
}

func billTo(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return WalkInCustomer
}

func footer(b config.Business) []string {
	out := []string{"Thank you for your business!"}
	if b.SupportEmail != "" {
		out = append(out, "For any queries, please contact us at "+b.SupportEmail)
	}
	return append(out, "This is a computer-generated invoice and does not require a signature.")
}
