package catalog

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/cache"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Lookup finds candidate products for a search term.
type Lookup interface {
	Search(ctx context.Context, term string) ([]Product, error)
}

// Service talks to the store API product endpoints. Search results are cached
// in Redis when a cache is configured; writes invalidate nothing because
// entries expire within seconds.
type Service struct {
	api      storeapi.Caller
	cache    *cache.JSON
	validate *validator.Validate
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	API      storeapi.Caller
	Cache    *cache.JSON
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{api: cfg.API, cache: cfg.Cache, validate: cfg.Validate, logger: cfg.Logger}
}

var _ Lookup = (*Service)(nil)

// Search returns products matching term via GET /product/search.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	key := cache.KeySearch(term)
	var products []Product
	if ok, err := s.cache.Get(ctx, key, &products); err != nil {
		s.logger.Warn().Err(err).Msg("search_cache_read_failed")
	} else if ok {
		obs.Inc(obs.CatalogSearches, "hit")
		return products, nil
	}
	if _, err := s.api.Get(ctx, "/product/search", storeapi.Search(term), &products); err != nil {
		obs.Inc(obs.CatalogSearches, "error")
		return nil, err
	}
	obs.Inc(obs.CatalogSearches, "miss")
	if products == nil {
		products = []Product{}
	}
	if err := s.cache.Set(ctx, key, products); err != nil {
		s.logger.Warn().Err(err).Msg("search_cache_write_failed")
	}
	return products, nil
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, q common.ListQuery) ([]Product, storeapi.Page, error) {
	var products []Product
	page, err := s.api.Get(ctx, "/product", storeapi.ListQuery(q), &products)
	if err != nil {
		return nil, storeapi.Page{}, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, page, nil
}

// Report returns a page of the per-product sales report.
func (s *Service) Report(ctx context.Context, q common.ListQuery) ([]ReportRow, storeapi.Page, error) {
	var rows []ReportRow
	page, err := s.api.Get(ctx, "/product/report", storeapi.ListQuery(q), &rows)
	if err != nil {
		return nil, storeapi.Page{}, err
	}
	if rows == nil {
		rows = []ReportRow{}
	}
	return rows, page, nil
}

// Create validates and registers a product.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	in = normalizeInput(in)
	if err := s.check(in); err != nil {
		return Product{}, err
	}
	var created Product
	if err := s.api.Send(ctx, http.MethodPost, "/product", in, &created); err != nil {
		return Product{}, err
	}
	s.logger.Info().Str("sku", in.SKUCode).Msg("product_created")
	return created, nil
}

// Update validates and replaces a product.
func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, common.BadRequest("product id required")
	}
	in = normalizeInput(in)
	if err := s.check(in); err != nil {
		return Product{}, err
	}
	var updated Product
	if err := s.api.Send(ctx, http.MethodPut, "/product/"+id, in, &updated); err != nil {
		return Product{}, err
	}
	s.logger.Info().Str("product_id", id).Msg("product_updated")
	return updated, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.BadRequest("product id required")
	}
	return s.api.Send(ctx, http.MethodDelete, "/product/"+id, nil, nil)
}

func (s *Service) check(in Input) error {
	if s.validate == nil {
		return nil
	}
	if err := s.validate.Struct(in); err != nil {
		return common.ValidationError(err)
	}
	return nil
}

func normalizeInput(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.SKUCode = strings.TrimSpace(in.SKUCode)
	return in
}
