package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/pricing"
)

// State is an immutable copy of the cart.
type State struct {
	Items          []Line
	CustomerName   string
	VoucherCode    string
	VoucherName    string
	VoucherPercent decimal.Decimal
	VoucherError   string
	Epoch          uint64
}

// Empty reports whether there are no lines.
func (s State) Empty() bool { return len(s.Items) == 0 }

// Lines returns the pricing view of every line.
func (s State) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(s.Items))
	for i, it := range s.Items {
		lines[i] = it.Pricing()
	}
	return lines
}

// Summary computes totals for this state.
func (s State) Summary() pricing.Summary {
	return pricing.Compute(s.Lines(), s.VoucherPercent)
}
