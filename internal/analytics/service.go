// Package analytics derives the dashboard overview from the product report.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/cache"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

const (
	topN       = 5
	reportPage = 100
	maxPages   = 50

	rebuildLockTTL = time.Minute
)

// ReportSource pages through GET /product/report.
type ReportSource interface {
	Report(ctx context.Context, q common.ListQuery) ([]catalog.ReportRow, storeapi.Page, error)
}

// Metrics are the headline dashboard figures.
type Metrics struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	TotalItemsSold   int             `json:"total_items_sold"`
	CurrentInventory int             `json:"current_inventory"`
	ProductCount     int             `json:"product_count"`
}

// ProductFigure is one bar of a top-products chart.
type ProductFigure struct {
	ProductID storeapi.ID     `json:"product_id"`
	Name      string          `json:"name"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
	Quantity  int             `json:"quantity"`
}

// Overview is the dashboard payload.
type Overview struct {
	Metrics       Metrics         `json:"metrics"`
	TopByRevenue  []ProductFigure `json:"top_products_revenue"`
	TopByQuantity []ProductFigure `json:"top_products_quantity"`
	Profitability []ProductFigure `json:"product_profitability"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// Locker serialises overview rebuilds across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service builds and caches the overview. With a Lock, only one instance
// pages through the report at a time and the others reuse its result.
type Service struct {
	Reports ReportSource
	Cache   *cache.JSON
	Lock    Locker
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Overview returns the cached overview, rebuilding it when missing or when
// refresh is set.
func (s *Service) Overview(ctx context.Context, refresh bool) (Overview, error) {
	if !refresh {
		if out, ok := s.cached(ctx); ok {
			return out, nil
		}
	}
	if s.Lock == nil {
		return s.rebuild(ctx)
	}
	var out Overview
	err := s.Lock.WithLock(ctx, cache.KeyLock("analytics:overview"), rebuildLockTTL, func(ctx context.Context) error {
		if !refresh {
			if hit, ok := s.cached(ctx); ok {
				out = hit
				return nil
			}
		}
		var err error
		out, err = s.rebuild(ctx)
		return err
	})
	return out, err
}

func (s *Service) cached(ctx context.Context) (Overview, bool) {
	var out Overview
	ok, err := s.Cache.Get(ctx, cache.KeyOverview(), &out)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("overview_cache_read_failed")
		return Overview{}, false
	}
	return out, ok
}

func (s *Service) rebuild(ctx context.Context) (Overview, error) {
	rows, err := s.allRows(ctx)
	if err != nil {
		return Overview{}, err
	}
	out := Build(rows)
	out.GeneratedAt = s.now()
	if err := s.Cache.Set(ctx, cache.KeyOverview(), out); err != nil {
		s.Logger.Warn().Err(err).Msg("overview_cache_write_failed")
	}
	return out, nil
}

func (s *Service) allRows(ctx context.Context) ([]catalog.ReportRow, error) {
	var all []catalog.ReportRow
	for page := 1; page <= maxPages; page++ {
		rows, meta, err := s.Reports.Report(ctx, common.ListQuery{Page: page, Limit: reportPage})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) == 0 || meta.Pages <= page {
			break
		}
	}
	return all, nil
}

// Build aggregates report rows. Rows without revenue or cost figures fall back
// to price times units sold.
func Build(rows []catalog.ReportRow) Overview {
	var (
		m       Metrics
		figures = make([]ProductFigure, 0, len(rows))
	)
	for _, row := range rows {
		f := figure(row)
		figures = append(figures, f)
		m.TotalRevenue = m.TotalRevenue.Add(f.Revenue)
		m.TotalCost = m.TotalCost.Add(f.Cost)
		m.TotalProfit = m.TotalProfit.Add(f.Profit)
		m.TotalItemsSold += f.Quantity
		m.CurrentInventory += row.Quantity
	}
	m.ProductCount = len(rows)
	if m.TotalRevenue.IsPositive() {
		m.ProfitMargin = m.TotalProfit.Mul(decimal.NewFromInt(100)).Div(m.TotalRevenue).Round(2)
	}

	byRevenue := top(figures, func(a, b ProductFigure) bool { return a.Revenue.GreaterThan(b.Revenue) })
	byQuantity := top(figures, func(a, b ProductFigure) bool { return a.Quantity > b.Quantity })
	return Overview{
		Metrics:       m,
		TopByRevenue:  byRevenue,
		TopByQuantity: byQuantity,
		Profitability: byRevenue,
	}
}

func figure(row catalog.ReportRow) ProductFigure {
	sold := decimal.NewFromInt(int64(row.TotalSold))
	revenue := row.TotalRevenue
	if revenue.IsZero() && row.TotalSold > 0 {
		revenue = row.SellingPrice.Mul(sold)
	}
	cost := row.TotalCost
	if cost.IsZero() && row.TotalSold > 0 {
		cost = row.CostPrice.Mul(sold)
	}
	profit := row.Profit
	if profit.IsZero() {
		profit = revenue.Sub(cost)
	}
	return ProductFigure{ProductID: row.ID, Name: row.Name, Revenue: revenue, Cost: cost, Profit: profit, Quantity: row.TotalSold}
}

func top(in []ProductFigure, better func(a, b ProductFigure) bool) []ProductFigure {
	out := append([]ProductFigure(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
