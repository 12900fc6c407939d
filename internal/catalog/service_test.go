package catalog_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/cache"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi/storeapitest"
)

var soap = map[string]any{
	"id": 1, "name": "Soap", "sku_code": "SOAP-1", "selling_price": "45.50",
	"cost_price": "30", "discount_percentage": 5, "quantity": 12,
}

func TestSearchUsesRedisCache(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /product/search": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, []map[string]any{soap})
		},
	})
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := catalog.NewService(catalog.ServiceConfig{
		API:    srv.Client,
		Cache:  cache.NewJSON(client, time.Minute),
		Logger: zerolog.Nop(),
	})

	first, err := svc.Search(context.Background(), "soap")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "45.5", first[0].SellingPrice.String())
	require.Equal(t, 12, first[0].Quantity)

	second, err := svc.Search(context.Background(), " SOAP ")
	require.NoError(t, err)
	require.Equal(t, first[0].SKUCode, second[0].SKUCode)
	require.Equal(t, 1, srv.Calls("GET /product/search"))
}

func TestSearchBlankTermSkipsRequest(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /product/search": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, []map[string]any{})
		},
	})
	svc := catalog.NewService(catalog.ServiceConfig{API: srv.Client, Logger: zerolog.Nop()})

	products, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, products)
	require.Zero(t, srv.Calls("GET /product/search"))
}

func TestCreateValidatesBeforeCalling(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /product": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, soap)
		},
	})
	svc := catalog.NewService(catalog.ServiceConfig{API: srv.Client, Validate: common.NewValidator(), Logger: zerolog.Nop()})

	_, err := svc.Create(context.Background(), catalog.Input{Name: "Soap"})
	require.Error(t, err)
	require.Zero(t, srv.Calls("POST /product"))

	in := catalog.Input{Name: "Soap", SKUCode: "SOAP-1", SellingPrice: dec("45.5"), CostPrice: dec("30"), Quantity: 12}
	p, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "SOAP-1", p.SKUCode)
}
