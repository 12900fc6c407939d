package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/config"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// ErrPrintFailed wraps any printer failure.
var ErrPrintFailed = errors.New("invoice print failed")

// Summary is one row of the invoice list.
type Summary struct {
	ID            storeapi.ID     `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// DetailItem is one stored invoice line.
type DetailItem struct {
	ID                 storeapi.ID     `json:"id"`
	ProductName        string          `json:"product_name"`
	SKUCode            string          `json:"sku_code"`
	Quantity           int             `json:"quantity"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// Detail is a stored invoice with its lines.
type Detail struct {
	Summary
	Items []DetailItem `json:"items"`
}

// Service reads invoices from the store API and reprints them.
type Service struct {
	API      storeapi.Caller
	Printer  Printer
	Business config.Business
	Logger   zerolog.Logger
}

// List returns a page of invoices.
func (s *Service) List(ctx context.Context, q common.ListQuery) ([]Summary, storeapi.Page, error) {
	var rows []Summary
	page, err := s.API.Get(ctx, "/invoice", storeapi.ListQuery(q), &rows)
	if err != nil {
		return nil, storeapi.Page{}, err
	}
	if rows == nil {
		rows = []Summary{}
	}
	return rows, page, nil
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Detail{}, common.BadRequest("invoice id is required")
	}
	var d Detail
	if _, err := s.API.Get(ctx, "/invoice/"+url.PathEscape(id), nil, &d); err != nil {
		return Detail{}, err
	}
	if d.Items == nil {
		d.Items = []DetailItem{}
	}
	return d, nil
}

// Reprint fetches a stored invoice and prints it again.
func (s *Service) Reprint(ctx context.Context, id string) (Document, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	doc := FromDetail(d, s.Business)
	if err := s.Printer.Print(ctx, doc); err != nil {
		s.Logger.Warn().Err(err).Str("invoice", doc.Number).Msg("invoice_reprint_failed")
		return Document{}, fmt.Errorf("%w: %w", ErrPrintFailed, err)
	}
	s.Logger.Info().Str("invoice", doc.Number).Msg("invoice_reprinted")
	return doc, nil
}
