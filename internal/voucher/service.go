package voucher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Service resolves voucher codes and manages the voucher list on the store API.
type Service struct {
	API      storeapi.Caller
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Input is the voucher creation form.
type Input struct {
	Name               string          `json:"name" validate:"required,max=64"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"gt=0,lte=100"`
}

// Resolve looks a code up. An exact (case-insensitive) name match is preferred
// over the first row the search returns.
func (s *Service) Resolve(ctx context.Context, code string) (Voucher, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Voucher{}, ErrCodeRequired
	}
	var rows []Voucher
	if _, err := s.API.Get(ctx, "/voucher", storeapi.Search(code), &rows); err != nil {
		return Voucher{}, fmt.Errorf("lookup voucher %s: %w", code, err)
	}
	if len(rows) == 0 {
		return Voucher{}, ErrNotFound
	}
	match := rows[0]
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.Name), code) {
			match = row
			break
		}
	}
	if !match.Valid() {
		s.Logger.Warn().Str("code", code).Str("discount_percentage", match.DiscountPercentage.String()).Msg("voucher_out_of_range")
		return Voucher{}, ErrInvalid
	}
	return match, nil
}

// List returns a page of vouchers.
func (s *Service) List(ctx context.Context, q common.ListQuery) ([]Voucher, storeapi.Page, error) {
	var rows []Voucher
	page, err := s.API.Get(ctx, "/voucher", storeapi.ListQuery(q), &rows)
	if err != nil {
		return nil, storeapi.Page{}, err
	}
	if rows == nil {
		rows = []Voucher{}
	}
	return rows, page, nil
}

// Create registers a voucher; the name is stored upper-cased.
func (s *Service) Create(ctx context.Context, in Input) (Voucher, error) {
	in.Name = NormalizeCode(in.Name)
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return Voucher{}, common.ValidationError(err)
		}
	}
	var created Voucher
	if err := s.API.Send(ctx, http.MethodPost, "/voucher", in, &created); err != nil {
		return Voucher{}, err
	}
	if created.Name == "" {
		created = Voucher{Name: in.Name, DiscountPercentage: in.DiscountPercentage}
	}
	s.Logger.Info().Str("voucher", created.Name).Msg("voucher_created")
	return created, nil
}

// Delete removes a voucher by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.BadRequest("voucher id required")
	}
	return s.API.Send(ctx, http.MethodDelete, "/voucher/"+id, nil, nil)
}
