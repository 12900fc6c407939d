package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Product is an immutable snapshot of a catalog row as returned by the store
// API. Quantity is the stock available when the snapshot was fetched.
type Product struct {
	ID                 storeapi.ID     `json:"id"`
	Name               string          `json:"name"`
	SKUCode            string          `json:"sku_code"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
	CostPrice          decimal.Decimal `json:"cost_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Quantity           int             `json:"quantity"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.Quantity > 0 }

// Input is the create/update product form.
type Input struct {
	Name               string          `json:"name" validate:"required,max=200"`
	SKUCode            string          `json:"sku_code" validate:"required,max=64"`
	SellingPrice       decimal.Decimal `json:"selling_price" validate:"gte=0"`
	CostPrice          decimal.Decimal `json:"cost_price" validate:"gte=0"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"gte=0,lte=100"`
	Quantity           int             `json:"quantity" validate:"gte=0"`
}

// ReportRow is one product line of the sales/profit report.
type ReportRow struct {
	ID           storeapi.ID     `json:"id"`
	Name         string          `json:"name"`
	SKUCode      string          `json:"sku_code"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Quantity     int             `json:"quantity"`
	TotalSold    int             `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Profit       decimal.Decimal `json:"profit"`
}
