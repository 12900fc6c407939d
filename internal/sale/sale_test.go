package sale_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/sale"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/storeapi/storeapitest"
)

func init() {
	obs.MustRegisterDomainMetrics("pos", prometheus.NewRegistry())
}

func filledCart() *cart.Cart {
	c := cart.New()
	p := catalog.Product{ID: "7", Name: "Tea", SKUCode: "TEA", SellingPrice: decimal.RequireFromString("120"), DiscountPercentage: decimal.RequireFromString("5"), Quantity: 10}
	_, _ = c.Add(p)
	_, _ = c.Add(p)
	c.SetCustomerName("  Meera ")
	return c
}

func TestSubmitPostsRecordAndReturnsInvoice(t *testing.T) {
	var got map[string]any
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /sale": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			storeapitest.OK(w, "INV-1042")
		},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sub := &sale.Submitter{API: srv.Client, Validate: common.NewValidator(), Logger: zerolog.Nop(), Now: func() time.Time { return now }}

	before := testutil.ToFloat64(obs.SalesTotal.WithLabelValues("ok"))
	receipt, err := sub.Submit(context.Background(), filledCart().Snapshot())
	require.NoError(t, err)
	require.Equal(t, "INV-1042", receipt.InvoiceNumber)
	require.Equal(t, now, receipt.CompletedAt)
	require.Equal(t, "240.00", receipt.Summary.GrandTotal.StringFixed(2))
	require.Equal(t, before+1, testutil.ToFloat64(obs.SalesTotal.WithLabelValues("ok")))

	require.Equal(t, "Meera", got["customer_name"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, float64(7), item["product_id"])
	require.Equal(t, float64(2), item["quantity"])
	require.Equal(t, float64(120), item["selling_price"])
	require.Equal(t, float64(5), item["discount_percentage"])
}

func TestSubmitEmptyCartSendsNothing(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /sale": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, 1)
		},
	})
	sub := &sale.Submitter{API: srv.Client, Logger: zerolog.Nop()}
	c := cart.New()

	_, err := sub.Submit(context.Background(), c.Snapshot())
	require.ErrorIs(t, err, sale.ErrEmptyCart)
	require.Zero(t, srv.Calls("POST /sale"))
	require.True(t, c.Snapshot().Empty())
}

func TestSubmitFailureWrapsCause(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /sale": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.Fail(w, http.StatusOK, "Insufficient stock for Tea")
		},
	})
	sub := &sale.Submitter{API: srv.Client, Logger: zerolog.Nop()}
	c := filledCart()

	_, err := sub.Submit(context.Background(), c.Snapshot())
	require.ErrorIs(t, err, sale.ErrSaleFailed)
	var apiErr *storeapi.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Insufficient stock for Tea", apiErr.Message)
	require.Len(t, c.Snapshot().Items, 1, "cart untouched on failure")
	require.Equal(t, 1, srv.Calls("POST /sale"))
}

func TestSubmitRejectsMissingInvoiceNumber(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /sale": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, nil)
		},
	})
	sub := &sale.Submitter{API: srv.Client, Logger: zerolog.Nop()}
	_, err := sub.Submit(context.Background(), filledCart().Snapshot())
	require.ErrorIs(t, err, sale.ErrNoInvoiceNumber)
}
