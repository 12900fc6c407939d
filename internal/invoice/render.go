package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/pricing"
)

// Renderer formats documents. The zero value prints rupees in UTC.
type Renderer struct {
	Currency string
	Location *time.Location
}

// Money formats an amount with the currency symbol and two decimals.
func (r Renderer) Money(d decimal.Decimal) string {
	sym := r.Currency
	if sym == "" {
		sym = "₹"
	}
	return sym + pricing.Format(d)
}

// Discount renders a line discount as "5%", or "-" when there is none.
func Discount(pct decimal.Decimal) string {
	if !pct.IsPositive() {
		return "-"
	}
	return pricing.FormatPercent(pct) + "%"
}

func (r Renderer) issued(t time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2 January 2006, 03:04 PM")
}

var htmlTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"discount": Discount,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Doc.Number}}</title></head>
<body style="max-width:800px;margin:0 auto;padding:40px;font-family:Arial,sans-serif;color:#333">
<header style="border-bottom:3px solid #2563eb;padding-bottom:20px;margin-bottom:30px">
<h1 style="margin:0">INVOICE</h1>
<p>Invoice #: {{.Doc.Number}}</p>
<p>Date: {{.Issued}}</p>
</header>
<section style="display:grid;grid-template-columns:1fr 1fr;gap:30px">
<div>
<h3>From:</h3>
<p><strong>{{.Doc.Business.Name}}</strong></p>
{{range .Doc.Business.AddressLines}}<p>{{.}}</p>
{{end}}{{with .Doc.Business.Phone}}<p>Phone: {{.}}</p>
{{end}}</div>
<div>
<h3>Bill To:</h3>
<p><strong>{{.Doc.BillTo}}</strong></p>
</div>
</section>
<table style="width:100%;border-collapse:collapse;margin-bottom:30px">
<thead><tr><th>Item</th><th>SKU</th><th>Qty</th><th>Price</th><th>Discount</th><th>Total</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.SKU}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Discount}}</td><td>{{.Total}}</td></tr>
{{end}}</tbody>
</table>
<div style="width:300px;margin-left:auto">
<p>Subtotal: {{.Subtotal}}</p>
{{if .Doc.HasVoucher}}<p style="color:#16a34a">Voucher Discount ({{.VoucherPercent}}%): - {{.VoucherDiscount}}</p>
{{end}}<p style="font-size:18px;font-weight:bold">Grand Total: {{.GrandTotal}}</p>
</div>
<footer style="border-top:2px solid #e2e8f0;padding-top:20px;text-align:center;font-size:12px">
{{range .Doc.Footer}}<p>{{.}}</p>
{{end}}</footer>
</body>
</html>
`))

type htmlLine struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice string
	Discount  string
	Total     string
}

type htmlView struct {
	Doc             Document
	Issued          string
	Lines           []htmlLine
	Subtotal        string
	VoucherPercent  string
	VoucherDiscount string
	GrandTotal      string
}

func (r Renderer) view(doc Document) htmlView {
	v := htmlView{
		Doc:             doc,
		Issued:          r.issued(doc.IssuedAt),
		Subtotal:        r.Money(doc.Subtotal),
		VoucherPercent:  pricing.FormatPercent(doc.VoucherPercent),
		VoucherDiscount: r.Money(doc.VoucherDiscount),
		GrandTotal:      r.Money(doc.GrandTotal),
	}
	for _, l := range doc.Lines {
		v.Lines = append(v.Lines, htmlLine{
			Name:      l.Name,
			SKU:       l.SKU,
			Quantity:  l.Quantity,
			UnitPrice: r.Money(l.UnitPrice),
			Discount:  Discount(l.DiscountPercentage),
			Total:     r.Money(l.Total),
		})
	}
	return v
}

// RenderHTML produces a printable HTML page.
func (r Renderer) RenderHTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r.view(doc)); err != nil {
		return nil, fmt.Errorf("invoice: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderText produces a plain-text invoice for line printers.
func (r Renderer) RenderText(doc Document) []byte {
	v := r.view(doc)
	var buf bytes.Buffer
	rule := strings.Repeat("-", 64)

	fmt.Fprintln(&buf, "INVOICE")
	fmt.Fprintf(&buf, "Invoice #: %s\n", doc.Number)
	fmt.Fprintf(&buf, "Date: %s\n\n", v.Issued)
	fmt.Fprintln(&buf, doc.Business.Name)
	for _, line := range doc.Business.AddressLines {
		fmt.Fprintln(&buf, line)
	}
	if doc.Business.Phone != "" {
		fmt.Fprintf(&buf, "Phone: %s\n", doc.Business.Phone)
	}
	fmt.Fprintf(&buf, "\nBill To: %s\n%s\n", doc.BillTo, rule)

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Item\tSKU\tQty\tPrice\tDiscount\tTotal\t")
	for _, l := range v.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t\n", l.Name, l.SKU, l.Quantity, l.UnitPrice, l.Discount, l.Total)
	}
	_ = tw.Flush()

	fmt.Fprintln(&buf, rule)
	fmt.Fprintf(&buf, "Subtotal: %s\n", v.Subtotal)
	if doc.HasVoucher() {
		fmt.Fprintf(&buf, "Voucher Discount (%s%%): - %s\n", v.VoucherPercent, v.VoucherDiscount)
	}
	fmt.Fprintf(&buf, "Grand Total: %s\n%s\n", v.GrandTotal, rule)
	for _, line := range doc.Footer {
		fmt.Fprintln(&buf, line)
	}
	return buf.Bytes()
}
