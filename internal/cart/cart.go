// Package cart holds the billing cart: an ordered set of lines keyed by
// product, a customer name and at most one active voucher.
package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/pricing"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

// InvalidVoucherMessage is shown when a voucher cannot be applied.
const InvalidVoucherMessage = "Invalid voucher code"

var (
	// ErrOutOfStock is returned when adding a product with no stock.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrAtCeiling is returned when an add would exceed available stock.
	ErrAtCeiling = errors.New("quantity already at available stock")
	// ErrSuperseded is returned when the cart was reset while a voucher lookup
	// was in flight; the lookup result has been discarded.
	ErrSuperseded = errors.New("cart was reset during voucher lookup")
)

// Resolver turns a voucher code into a voucher.
type Resolver interface {
	Resolve(ctx context.Context, code string) (voucher.Voucher, error)
}

// Line is one product entry. Price, discount and ceiling are copied from the
// product when first added and never refreshed.
type Line struct {
	ProductID          storeapi.ID     `json:"product_id"`
	Name               string          `json:"name"`
	SKUCode            string          `json:"sku_code"`
	UnitPrice          decimal.Decimal `json:"selling_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Quantity           int             `json:"quantity"`
	Ceiling            int             `json:"available_quantity"`
}

// Pricing returns the pricing view of the line.
func (l Line) Pricing() pricing.Line {
	return pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
}

// Total is the line total under voucher-only pricing.
func (l Line) Total() decimal.Decimal { return pricing.LineTotal(l.Pricing()) }

// Cart is safe for concurrent use. The lock is never held across a network
// call.
type Cart struct {
	mu          sync.Mutex
	items       []Line
	customer    string
	code        string
	voucherName string
	voucherPct  decimal.Decimal
	voucherErr  string
	epoch       uint64
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

func (c *Cart) indexOf(id storeapi.ID) int {
	for i := range c.items {
		if c.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

// Add appends p with quantity 1, or increments the existing line by one. The
// quantity never exceeds the stock ceiling copied at first add.
func (c *Cart) Add(p catalog.Product) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(p.ID); i >= 0 {
		line := &c.items[i]
		if line.Quantity >= line.Ceiling {
			return *line, ErrAtCeiling
		}
		line.Quantity++
		return *line, nil
	}
	if !p.InStock() {
		return Line{}, ErrOutOfStock
	}
	line := Line{
		ProductID:          p.ID,
		Name:               p.Name,
		SKUCode:            p.SKUCode,
		UnitPrice:          p.SellingPrice,
		DiscountPercentage: p.DiscountPercentage,
		Quantity:           1,
		Ceiling:            p.Quantity,
	}
	c.items = append(c.items, line)
	return line, nil
}

// SetQuantity sets a line's quantity, clamped to its ceiling. q <= 0 removes
// the line. Unknown ids are ignored. The resulting line is returned with
// ok=false when the line no longer exists.
func (c *Cart) SetQuantity(id storeapi.ID, q int) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return Line{}, false
	}
	if q <= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		return Line{}, false
	}
	c.items[i].Quantity = min(q, c.items[i].Ceiling)
	return c.items[i], true
}

// Remove deletes a line; removing an absent product is a no-op.
func (c *Cart) Remove(id storeapi.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// SetCustomerName records the optional customer name.
func (c *Cart) SetCustomerName(name string) {
	c.mu.Lock()
	c.customer = name
	c.mu.Unlock()
}

// SetVoucherCode records the code as typed (upper-cased). The active discount
// is unchanged until ApplyVoucher.
func (c *Cart) SetVoucherCode(code string) {
	c.mu.Lock()
	c.code = voucher.NormalizeCode(code)
	c.mu.Unlock()
}

// ApplyVoucher resolves code (or the stored code when empty) and replaces the
// active discount. Any failure leaves the discount at zero with
// InvalidVoucherMessage recorded. A blank code is rejected without a lookup
// and also drops any discount already applied.
func (c *Cart) ApplyVoucher(ctx context.Context, resolver Resolver, code string) (voucher.Voucher, error) {
	c.mu.Lock()
	if code != "" {
		c.code = voucher.NormalizeCode(code)
	}
	code = c.code
	if code == "" {
		c.voucherPct = decimal.Zero
		c.voucherName = ""
		c.voucherErr = InvalidVoucherMessage
		c.mu.Unlock()
		return voucher.Voucher{}, voucher.ErrCodeRequired
	}
	c.voucherErr = ""
	epoch := c.epoch
	c.mu.Unlock()

	v, err := resolver.Resolve(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return voucher.Voucher{}, ErrSuperseded
	}
	if err != nil {
		c.voucherPct = decimal.Zero
		c.voucherName = ""
		c.voucherErr = InvalidVoucherMessage
		return voucher.Voucher{}, err
	}
	c.voucherPct = v.DiscountPercentage
	c.voucherName = v.Name
	return v, nil
}

// Reset empties the cart, including customer and voucher state.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Cart) resetLocked() {
	c.items = nil
	c.customer = ""
	c.code = ""
	c.voucherName = ""
	c.voucherPct = decimal.Zero
	c.voucherErr = ""
	c.epoch++
}

// Snapshot returns a deep copy of the cart state.
func (c *Cart) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]Line, len(c.items))
	copy(items, c.items)
	return State{
		Items:          items,
		CustomerName:   c.customer,
		VoucherCode:    c.code,
		VoucherName:    c.voucherName,
		VoucherPercent: c.voucherPct,
		VoucherError:   c.voucherErr,
		Epoch:          c.epoch,
	}
}

// ResetIf empties the cart only if it has not been reset since snapshot s was
// taken. It reports whether the reset happened.
func (c *Cart) ResetIf(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != s.Epoch {
		return false
	}
	c.resetLocked()
	return true
}
