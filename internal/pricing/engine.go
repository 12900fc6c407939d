// Package pricing derives bill totals from cart lines. Every function is pure:
// nothing is cached and nothing is rounded until presentation.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is the pricing view of a cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal        decimal.Decimal
	VoucherPercent  decimal.Decimal
	VoucherDiscount decimal.Decimal
	GrandTotal      decimal.Decimal
	ItemCount       int
	TotalQuantity   int
}

// LineTotal is unit price times quantity. Per-line discount percentages are
// informational only; the voucher is the single discount applied.
func LineTotal(l Line) decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l))
	}
	return total
}

// VoucherDiscount is subtotal * pct / 100, zero when pct is not positive.
func VoucherDiscount(subtotal, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(pct).Div(hundred)
}

// GrandTotal is subtotal minus the voucher discount.
func GrandTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount)
}

// ItemCount is the number of distinct lines.
func ItemCount(lines []Line) int { return len(lines) }

// TotalQuantity sums quantities across lines.
func TotalQuantity(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.Quantity > 0 {
			n += l.Quantity
		}
	}
	return n
}

// Compute calculates bill totals given the lines and active voucher percentage.
func Compute(lines []Line, voucherPct decimal.Decimal) Summary {
	subtotal := Subtotal(lines)
	discount := VoucherDiscount(subtotal, voucherPct)
	if !voucherPct.IsPositive() {
		voucherPct = decimal.Zero
	}
	return Summary{
		Subtotal:        subtotal,
		VoucherPercent:  voucherPct,
		VoucherDiscount: discount,
		GrandTotal:      GrandTotal(subtotal, discount),
		ItemCount:       ItemCount(lines),
		TotalQuantity:   TotalQuantity(lines),
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string { return d.StringFixed(2) }

// FormatPercent renders a percentage without trailing zeros ("12.5", "10").
func FormatPercent(d decimal.Decimal) string { return d.String() }
