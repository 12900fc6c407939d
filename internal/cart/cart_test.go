package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(id string, price string, stock int) catalog.Product {
	return catalog.Product{
		ID:                 storeapi.ID(id),
		Name:               "Product " + id,
		SKUCode:            "SKU-" + id,
		SellingPrice:       dec(price),
		DiscountPercentage: dec("5"),
		Quantity:           stock,
	}
}

type stubResolver struct {
	vouchers map[string]voucher.Voucher
	err      error
	before   func()
}

func (s stubResolver) Resolve(ctx context.Context, code string) (voucher.Voucher, error) {
	if s.before != nil {
		s.before()
	}
	if s.err != nil {
		return voucher.Voucher{}, s.err
	}
	v, ok := s.vouchers[code]
	if !ok {
		return voucher.Voucher{}, voucher.ErrNotFound
	}
	return v, nil
}

var save10 = stubResolver{vouchers: map[string]voucher.Voucher{
	"SAVE10": {ID: "1", Name: "SAVE10", DiscountPercentage: dec("10")},
}}

func TestAddTwiceIncrementsSingleLine(t *testing.T) {
	c := cart.New()
	a := product("A", "100", 5)

	_, err := c.Add(a)
	require.NoError(t, err)
	line, err := c.Add(a)
	require.NoError(t, err)
	require.Equal(t, 2, line.Quantity)

	s := c.Snapshot()
	require.Len(t, s.Items, 1)
	require.Equal(t, 2, s.Items[0].Quantity)
	require.Equal(t, 5, s.Items[0].Ceiling)
}

func TestAddIsClampedToCeiling(t *testing.T) {
	c := cart.New()
	p := product("A", "10", 2)
	_, _ = c.Add(p)
	_, _ = c.Add(p)
	_, err := c.Add(p)
	require.ErrorIs(t, err, cart.ErrAtCeiling)
	require.Equal(t, 2, c.Snapshot().Items[0].Quantity)

	_, err = c.Add(product("Z", "10", 0))
	require.ErrorIs(t, err, cart.ErrOutOfStock)
	require.Len(t, c.Snapshot().Items, 1)
}

func TestSetQuantityClampsAndRemoves(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "100", 5))
	_, _ = c.Add(product("B", "50", 10))

	line, ok := c.SetQuantity("A", 99)
	require.True(t, ok)
	require.Equal(t, 5, line.Quantity)

	_, ok = c.SetQuantity("A", 0)
	require.False(t, ok)
	s := c.Snapshot()
	require.Len(t, s.Items, 1)
	require.Equal(t, storeapi.ID("B"), s.Items[0].ProductID)
	require.Equal(t, "50.00", s.Summary().Subtotal.StringFixed(2))

	_, ok = c.SetQuantity("B", -3)
	require.False(t, ok)
	require.True(t, c.Snapshot().Empty())

	_, ok = c.SetQuantity("missing", 4)
	require.False(t, ok)
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "1", 1))
	c.Remove("A")
	c.Remove("A")
	require.True(t, c.Snapshot().Empty())
}

func TestScenarioVoucherTotals(t *testing.T) {
	c := cart.New()
	a := product("A", "100", 5)
	_, _ = c.Add(a)
	_, _ = c.Add(a)
	_, _ = c.Add(product("B", "50", 10))

	require.Equal(t, "250.00", c.Snapshot().Summary().Subtotal.StringFixed(2))

	v, err := c.ApplyVoucher(context.Background(), save10, "save10")
	require.NoError(t, err)
	require.Equal(t, "SAVE10", v.Name)

	s := c.Snapshot()
	require.Equal(t, "SAVE10", s.VoucherCode)
	require.Empty(t, s.VoucherError)
	require.Equal(t, "225.00", s.Summary().GrandTotal.StringFixed(2))
}

func TestFailedVoucherClearsPreviousDiscount(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "100", 5))
	_, err := c.ApplyVoucher(context.Background(), save10, "SAVE10")
	require.NoError(t, err)

	_, err = c.ApplyVoucher(context.Background(), save10, "BOGUS")
	require.ErrorIs(t, err, voucher.ErrNotFound)
	s := c.Snapshot()
	require.True(t, s.VoucherPercent.IsZero())
	require.Equal(t, cart.InvalidVoucherMessage, s.VoucherError)
	require.True(t, s.Summary().GrandTotal.Equal(s.Summary().Subtotal))

	_, err = c.ApplyVoucher(context.Background(), stubResolver{err: errors.New("network")}, "SAVE10")
	require.Error(t, err)
	require.Equal(t, cart.InvalidVoucherMessage, c.Snapshot().VoucherError)
}

func TestApplyVoucherBlankCodeSkipsLookup(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "100", 5))
	_, err := c.ApplyVoucher(context.Background(), save10, "save10")
	require.NoError(t, err)
	require.True(t, c.Snapshot().VoucherPercent.Equal(decimal.NewFromInt(10)))

	c.SetVoucherCode("")
	called := false
	_, err = c.ApplyVoucher(context.Background(), stubResolver{before: func() { called = true }}, "  ")
	require.ErrorIs(t, err, voucher.ErrCodeRequired)
	require.False(t, called)

	s := c.Snapshot()
	require.True(t, s.VoucherPercent.IsZero())
	require.Empty(t, s.VoucherName)
	require.Equal(t, cart.InvalidVoucherMessage, s.VoucherError)
	require.True(t, s.Summary().GrandTotal.Equal(decimal.NewFromInt(100)))
}

func TestVoucherResultAfterResetIsDiscarded(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "100", 5))
	resolver := save10
	resolver.before = c.Reset

	_, err := c.ApplyVoucher(context.Background(), resolver, "SAVE10")
	require.ErrorIs(t, err, cart.ErrSuperseded)
	s := c.Snapshot()
	require.True(t, s.VoucherPercent.IsZero())
	require.Empty(t, s.VoucherCode)
}

func TestResetClearsEverything(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "100", 5))
	c.SetCustomerName("Ravi")
	_, _ = c.ApplyVoucher(context.Background(), save10, "SAVE10")

	c.Reset()
	s := c.Snapshot()
	require.True(t, s.Empty())
	require.Empty(t, s.CustomerName)
	require.Empty(t, s.VoucherCode)
	require.True(t, s.VoucherPercent.IsZero())
	require.Empty(t, s.VoucherError)
}

func TestResetIfSkipsWhenAlreadyReset(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "1", 3))
	s := c.Snapshot()
	c.Reset()
	_, _ = c.Add(product("B", "1", 3))
	require.False(t, c.ResetIf(s))
	require.Len(t, c.Snapshot().Items, 1)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	c := cart.New()
	_, _ = c.Add(product("A", "1", 3))
	s := c.Snapshot()
	s.Items[0].Quantity = 99
	require.Equal(t, 1, c.Snapshot().Items[0].Quantity)
}
