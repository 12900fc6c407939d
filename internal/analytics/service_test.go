package analytics_test

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/analytics"
	"github.com/noah-isme/pos-terminal/internal/cache"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/lock"
	"github.com/noah-isme/pos-terminal/internal/storeapi/storeapitest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildAggregates(t *testing.T) {
	rows := []catalog.ReportRow{
		{ID: "1", Name: "Rice", Quantity: 10, TotalSold: 4, TotalRevenue: dec("400"), TotalCost: dec("300"), Profit: dec("100")},
		{ID: "2", Name: "Salt", Quantity: 5, TotalSold: 10, SellingPrice: dec("20"), CostPrice: dec("15")},
		{ID: "3", Name: "Oil", Quantity: 0},
	}
	out := analytics.Build(rows)
	require.Equal(t, "600", out.Metrics.TotalRevenue.String())
	require.Equal(t, "450", out.Metrics.TotalCost.String())
	require.Equal(t, "150", out.Metrics.TotalProfit.String())
	require.Equal(t, "25", out.Metrics.ProfitMargin.String())
	require.Equal(t, 14, out.Metrics.TotalItemsSold)
	require.Equal(t, 15, out.Metrics.CurrentInventory)
	require.Equal(t, 3, out.Metrics.ProductCount)

	require.Equal(t, "Rice", out.TopByRevenue[0].Name)
	require.Equal(t, "Salt", out.TopByQuantity[0].Name)
	require.Equal(t, "50", out.Profitability[1].Profit.String())
}

func TestBuildKeepsTopFive(t *testing.T) {
	var rows []catalog.ReportRow
	for i := 1; i <= 8; i++ {
		rows = append(rows, catalog.ReportRow{Name: strconv.Itoa(i), TotalSold: i, TotalRevenue: decimal.NewFromInt(int64(100 * i))})
	}
	out := analytics.Build(rows)
	require.Len(t, out.TopByRevenue, 5)
	require.Equal(t, "8", out.TopByRevenue[0].Name)
	require.Equal(t, "4", out.TopByQuantity[4].Name)
}

func TestBuildEmpty(t *testing.T) {
	out := analytics.Build(nil)
	require.True(t, out.Metrics.ProfitMargin.IsZero())
	require.Empty(t, out.TopByRevenue)
}

func TestOverviewPagesAndCaches(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /product/report": func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			storeapitest.Paged(w, []map[string]any{{"id": page, "name": "P" + page, "total_sold": 1, "total_revenue": 10, "total_cost": 5, "profit": 5}}, 2, 1, 2)
		},
	})
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reports := catalog.NewService(catalog.ServiceConfig{API: srv.Client, Logger: zerolog.Nop()})
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := &analytics.Service{Reports: reports, Cache: cache.NewJSON(rdb, time.Minute), Logger: zerolog.Nop(), Now: func() time.Time { return at }}

	first, err := svc.Overview(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, first.Metrics.ProductCount)
	require.Equal(t, "20", first.Metrics.TotalRevenue.String())
	require.Equal(t, 2, srv.Calls("GET /product/report"))

	second, err := svc.Overview(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, srv.Calls("GET /product/report"), "served from cache")
	require.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
	require.True(t, first.Metrics.TotalRevenue.Equal(second.Metrics.TotalRevenue))

	_, err = svc.Overview(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 4, srv.Calls("GET /product/report"))
}

func TestOverviewRebuildsOnceUnderLock(t *testing.T) {
	srv := storeapitest.New(t, map[string]http.HandlerFunc{
		"GET /product/report": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(30 * time.Millisecond)
			storeapitest.Paged(w, []map[string]any{{"id": 1, "name": "Soap", "total_sold": 2, "total_revenue": 40, "total_cost": 10, "profit": 30}}, 1, 1, 1)
		},
	})
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reports := catalog.NewService(catalog.ServiceConfig{API: srv.Client, Logger: zerolog.Nop()})
	newSvc := func() *analytics.Service {
		return &analytics.Service{
			Reports: reports,
			Cache:   cache.NewJSON(rdb, time.Minute),
			Lock:    lock.Locker{R: rdb, RetryBackoff: 5 * time.Millisecond},
			Logger:  zerolog.Nop(),
		}
	}

	var wg sync.WaitGroup
	results := make([]analytics.Overview, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = newSvc().Overview(context.Background(), false)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "40", results[i].Metrics.TotalRevenue.String())
	}
	require.Equal(t, 1, srv.Calls("GET /product/report"), "instances waiting on the lock reuse the cached overview")
	require.False(t, mr.Exists(cache.KeyLock("analytics:overview")))
}
