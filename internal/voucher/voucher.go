package voucher

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

var (
	// ErrNotFound is returned when no voucher matches the code.
	ErrNotFound = errors.New("voucher not found")
	// ErrInvalid is returned when the store reports a percentage outside 0-100.
	ErrInvalid = errors.New("voucher percentage out of range")
	// ErrCodeRequired is returned for a blank code.
	ErrCodeRequired = errors.New("voucher code required")
)

var hundred = decimal.NewFromInt(100)

// Voucher is a named flat-percentage discount. Name doubles as the code.
type Voucher struct {
	ID                 storeapi.ID     `json:"id"`
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// NormalizeCode trims and upper-cases a typed voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether the percentage is within 0-100.
func (v Voucher) Valid() bool {
	return !v.DiscountPercentage.IsNegative() && v.DiscountPercentage.LessThanOrEqual(hundred)
}
