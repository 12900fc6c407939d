// Package sale turns a cart snapshot into a sale on the store API.
package sale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/pricing"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

var (
	// ErrEmptyCart is returned before any request when the cart has no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSaleFailed wraps any store API failure while posting the sale.
	ErrSaleFailed = errors.New("sale failed")
	// ErrNoInvoiceNumber is returned when the store accepted the sale but sent
	// back no invoice identifier.
	ErrNoInvoiceNumber = errors.New("sale response missing invoice number")
)

// Item is one line of the sale record.
type Item struct {
	ProductID          storeapi.ID     `json:"product_id" validate:"required"`
	Quantity           int             `json:"quantity" validate:"gte=1"`
	SellingPrice       decimal.Decimal `json:"selling_price" validate:"gte=0"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"gte=0,lte=100"`
}

// MarshalJSON sends money as JSON numbers, which is what the store API stores.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID          storeapi.ID `json:"product_id"`
		Quantity           int         `json:"quantity"`
		SellingPrice       json.Number `json:"selling_price"`
		DiscountPercentage json.Number `json:"discount_percentage"`
	}{i.ProductID, i.Quantity, json.Number(i.SellingPrice.String()), json.Number(i.DiscountPercentage.String())})
}

// Record is the exact payload posted to /sale.
type Record struct {
	CustomerName string `json:"customer_name" validate:"max=120"`
	Items        []Item `json:"items" validate:"required,min=1,dive"`
}

// FromState builds a record from a cart snapshot.
func FromState(s cart.State) Record {
	items := make([]Item, 0, len(s.Items))
	for _, line := range s.Items {
		items = append(items, Item{
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			SellingPrice:       line.UnitPrice,
			DiscountPercentage: line.DiscountPercentage,
		})
	}
	return Record{CustomerName: strings.TrimSpace(s.CustomerName), Items: items}
}

// Receipt is the result of a completed sale.
type Receipt struct {
	InvoiceNumber string
	Record        Record
	Summary       pricing.Summary
	CompletedAt   time.Time
}

// Submitter posts sales. It never retries: a failed POST may still have been
// recorded upstream and the operator decides whether to try again.
type Submitter struct {
	API      storeapi.Caller
	Validate *validator.Validate
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Submitter) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit validates the snapshot, posts it and returns the invoice number.
func (s *Submitter) Submit(ctx context.Context, state cart.State) (Receipt, error) {
	if state.Empty() {
		obs.Inc(obs.SalesTotal, "rejected")
		return Receipt{}, ErrEmptyCart
	}
	record := FromState(state)
	if s.Validate != nil {
		if err := s.Validate.Struct(record); err != nil {
			obs.Inc(obs.SalesTotal, "rejected")
			return Receipt{}, common.ValidationError(err)
		}
	}
	summary := state.Summary()

	var invoice storeapi.ID
	if err := s.API.Send(ctx, http.MethodPost, "/sale", record, &invoice); err != nil {
		obs.Inc(obs.SalesTotal, "failed")
		s.Logger.Error().Err(err).Int("items", len(record.Items)).Msg("sale_failed")
		return Receipt{}, fmt.Errorf("%w: %w", ErrSaleFailed, err)
	}
	if invoice == "" {
		obs.Inc(obs.SalesTotal, "failed")
		return Receipt{}, fmt.Errorf("%w: %w", ErrSaleFailed, ErrNoInvoiceNumber)
	}

	obs.Inc(obs.SalesTotal, "ok")
	if obs.SaleAmount != nil {
		amount, _ := summary.GrandTotal.Float64()
		obs.SaleAmount.Observe(amount)
	}
	s.Logger.Info().
		Str("invoice", invoice.String()).
		Int("items", summary.ItemCount).
		Int("quantity", summary.TotalQuantity).
		Str("grand_total", pricing.Format(summary.GrandTotal)).
		Msg("sale_submitted")
	return Receipt{
		InvoiceNumber: invoice.String(),
		Record:        record,
		Summary:       summary,
		CompletedAt:   s.now(),
	}, nil
}
