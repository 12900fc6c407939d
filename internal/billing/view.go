package billing

import (
	"strings"

	"github.com/noah-isme/pos-terminal/internal/events"
	"github.com/noah-isme/pos-terminal/internal/invoice"
	"github.com/noah-isme/pos-terminal/internal/pricing"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// ResultView is one search result row.
type ResultView struct {
	ProductID    storeapi.ID `json:"product_id"`
	Name         string      `json:"name"`
	SKUCode      string      `json:"sku_code"`
	SellingPrice string      `json:"selling_price"`
	Discount     string      `json:"discount"`
	Available    int         `json:"available"`
	InStock      bool        `json:"in_stock"`
}

// ItemView is one cart line with its total.
type ItemView struct {
	ProductID storeapi.ID `json:"product_id"`
	Name      string      `json:"name"`
	SKUCode   string      `json:"sku_code"`
	UnitPrice string      `json:"unit_price"`
	Discount  string      `json:"discount"`
	Quantity  int         `json:"quantity"`
	Available int         `json:"available"`
	AtCeiling bool        `json:"at_ceiling"`
	LineTotal string      `json:"line_total"`
}

// VoucherView is the active voucher.
type VoucherView struct {
	Name     string `json:"name"`
	Percent  string `json:"percent"`
	Discount string `json:"discount"`
}

// Totals are formatted to two decimals.
type Totals struct {
	Subtotal        string `json:"subtotal"`
	VoucherDiscount string `json:"voucher_discount"`
	GrandTotal      string `json:"grand_total"`
	ItemCount       int    `json:"item_count"`
	TotalQuantity   int    `json:"total_quantity"`
}

// View is everything the billing screen shows.
type View struct {
	Currency     string          `json:"currency"`
	SearchTerm   string          `json:"search_term"`
	Searching    bool            `json:"searching"`
	ShowResults  bool            `json:"show_results"`
	Results      []ResultView    `json:"results"`
	SearchError  string          `json:"search_error,omitempty"`
	Items        []ItemView      `json:"items"`
	CustomerName string          `json:"customer_name"`
	VoucherCode  string          `json:"voucher_code"`
	Voucher      *VoucherView    `json:"voucher,omitempty"`
	VoucherError string          `json:"voucher_error,omitempty"`
	Totals       Totals          `json:"totals"`
	CanComplete  bool            `json:"can_complete"`
	LastInvoice  string          `json:"last_invoice,omitempty"`
	Notices      []events.Notice `json:"notices"`
}

// View renders the terminal state.
func (t *Terminal) View() View {
	state := t.cart.Snapshot()
	summary := state.Summary()

	t.mu.Lock()
	v := View{
		SearchTerm:  t.term,
		Searching:   strings.TrimSpace(t.term) != "" && t.resultsTerm != strings.TrimSpace(t.term),
		ShowResults: t.showResults,
		SearchError: t.searchErr,
		LastInvoice: t.lastInvoice,
		CanComplete: !state.Empty() && !t.completing,
	}
	results := t.results
	t.mu.Unlock()

	v.Currency = t.deps.Currency
	if v.Currency == "" {
		v.Currency = "₹"
	}
	v.Results = make([]ResultView, 0, len(results))
	for _, p := range results {
		v.Results = append(v.Results, ResultView{
			ProductID:    p.ID,
			Name:         p.Name,
			SKUCode:      p.SKUCode,
			SellingPrice: pricing.Format(p.SellingPrice),
			Discount:     invoice.Discount(p.DiscountPercentage),
			Available:    p.Quantity,
			InStock:      p.InStock(),
		})
	}
	v.Items = make([]ItemView, 0, len(state.Items))
	for _, line := range state.Items {
		v.Items = append(v.Items, ItemView{
			ProductID: line.ProductID,
			Name:      line.Name,
			SKUCode:   line.SKUCode,
			UnitPrice: pricing.Format(line.UnitPrice),
			Discount:  invoice.Discount(line.DiscountPercentage),
			Quantity:  line.Quantity,
			Available: line.Ceiling,
			AtCeiling: line.Quantity >= line.Ceiling,
			LineTotal: pricing.Format(line.Total()),
		})
	}
	v.CustomerName = state.CustomerName
	v.VoucherCode = state.VoucherCode
	v.VoucherError = state.VoucherError
	if summary.VoucherPercent.IsPositive() {
		v.Voucher = &VoucherView{
			Name:     state.VoucherName,
			Percent:  pricing.FormatPercent(summary.VoucherPercent),
			Discount: pricing.Format(summary.VoucherDiscount),
		}
	}
	v.Totals = Totals{
		Subtotal:        pricing.Format(summary.Subtotal),
		VoucherDiscount: pricing.Format(summary.VoucherDiscount),
		GrandTotal:      pricing.Format(summary.GrandTotal),
		ItemCount:       summary.ItemCount,
		TotalQuantity:   summary.TotalQuantity,
	}
	v.Notices = t.board.List()
	return v
}
