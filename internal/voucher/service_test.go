package voucher_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi/storeapitest"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

func TestResolvePrefersExactMatch(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /voucher": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("searchquery") != "SAVE10" {
				storeapitest.OK(w, []map[string]any{})
				return
			}
			storeapitest.OK(w, []map[string]any{
				{"id": 1, "name": "SAVE100", "discount_percentage": "50"},
				{"id": 2, "name": "save10", "discount_percentage": 10},
			})
		},
	})
	svc := &voucher.Service{API: srv.Client, Logger: zerolog.Nop()}

	v, err := svc.Resolve(context.Background(), "  save10 ")
	require.NoError(t, err)
	require.Equal(t, "2", v.ID.String())
	require.Equal(t, "10", v.DiscountPercentage.String())
}

func TestResolveNotFoundAndInvalid(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /voucher": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("searchquery") == "BROKEN" {
				storeapitest.OK(w, []map[string]any{{"id": 3, "name": "BROKEN", "discount_percentage": 150}})
				return
			}
			storeapitest.OK(w, []map[string]any{})
		},
	})
	svc := &voucher.Service{API: srv.Client, Logger: zerolog.Nop()}

	_, err := svc.Resolve(context.Background(), "nope")
	require.ErrorIs(t, err, voucher.ErrNotFound)

	_, err = svc.Resolve(context.Background(), "broken")
	require.ErrorIs(t, err, voucher.ErrInvalid)

	_, err = svc.Resolve(context.Background(), "   ")
	require.ErrorIs(t, err, voucher.ErrCodeRequired)
	require.Equal(t, 2, srv.Calls("GET /voucher"))
}

func TestCreateUppercasesAndValidates(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"POST /voucher": func(w http.ResponseWriter, r *http.Request) {
			storeapitest.OK(w, map[string]any{"id": 9, "name": "DIWALI", "discount_percentage": "15"})
		},
	})
	svc := &voucher.Service{API: srv.Client, Validate: common.NewValidator(), Logger: zerolog.Nop()}

	v, err := svc.Create(context.Background(), voucher.Input{Name: "diwali", DiscountPercentage: mustDec("15")})
	require.NoError(t, err)
	require.Equal(t, "DIWALI", v.Name)

	_, err = svc.Create(context.Background(), voucher.Input{Name: "x", DiscountPercentage: mustDec("120")})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, 1, srv.Calls("POST /voucher"))
}
