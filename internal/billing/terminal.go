// Package billing is the per-operator billing screen: product search, the
// cart, voucher entry and sale completion with invoice printing.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/config"
	"github.com/noah-isme/pos-terminal/internal/events"
	"github.com/noah-isme/pos-terminal/internal/invoice"
	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/sale"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

var (
	// ErrNotInResults is returned when selecting a product that is not in the
	// current search results.
	ErrNotInResults = errors.New("product not in search results")
	// ErrSaleInProgress is returned when a sale is submitted while another one
	// from the same terminal is still running.
	ErrSaleInProgress = errors.New("sale already in progress")
	// ErrLineNotFound is returned when changing a product that is not in the cart.
	ErrLineNotFound = errors.New("product not in cart")
)

// SaleSubmitter posts a cart snapshot as a sale.
type SaleSubmitter interface {
	Submit(ctx context.Context, state cart.State) (sale.Receipt, error)
}

// Deps are shared by every terminal. Bus receives every notice in addition to
// the terminal's own board.
type Deps struct {
	Lookup      catalog.Lookup
	Vouchers    cart.Resolver
	Sales       SaleSubmitter
	Printer     invoice.Printer
	Business    config.Business
	Currency    string
	SearchDelay time.Duration
	Bus         *events.Bus
	NoticeLimit int
	Logger      zerolog.Logger
}

// Completed describes a finished sale.
type Completed struct {
	InvoiceNumber string `json:"invoice_number"`
	GrandTotal    string `json:"grand_total"`
	Printed       bool   `json:"printed"`
	PrintError    string `json:"print_error,omitempty"`
}

// Terminal holds one operator's billing state. Every method is safe for
// concurrent use; no lock is held across a store API call.
type Terminal struct {
	id       string
	deps     Deps
	cart     *cart.Cart
	searcher *catalog.Searcher
	board    *events.Board
	bus      *events.Bus
	logger   zerolog.Logger
	cancel   context.CancelFunc

	mu          sync.Mutex
	term        string
	resultsTerm string
	results     []catalog.Product
	showResults bool
	searchErr   string
	completing  bool
	lastInvoice string
	updated     chan struct{}
}

// NewTerminal opens an empty terminal. token authenticates the lookups fired
// from the search debounce timer.
func NewTerminal(id, token string, deps Deps) *Terminal {
	ctx, cancel := context.WithCancel(storeapi.WithToken(context.Background(), token))
	board := events.NewBoard(deps.NoticeLimit)
	t := &Terminal{
		id:      id,
		deps:    deps,
		cart:    cart.New(),
		board:   board,
		bus:     deps.Bus.With(board),
		logger:  deps.Logger.With().Str("session_id", id).Logger(),
		cancel:  cancel,
		updated: make(chan struct{}),
	}
	t.searcher = catalog.NewSearcher(ctx, deps.Lookup, deps.SearchDelay, t.logger, t.deliver)
	return t
}

// Close stops pending searches and aborts any in flight.
func (t *Terminal) Close() {
	t.searcher.Cancel()
	t.cancel()
}

// deliver runs with the searcher's lock held.
func (t *Terminal) deliver(res catalog.Results) {
	t.mu.Lock()
	switch {
	case res.Term == "":
		t.results = nil
		t.resultsTerm = ""
		t.showResults = false
		t.searchErr = ""
	case res.Err != nil:
		t.results = nil
		t.resultsTerm = res.Term
		t.showResults = true
		t.searchErr = "Search failed, try again"
	default:
		t.results = res.Products
		t.resultsTerm = res.Term
		t.showResults = true
		t.searchErr = ""
	}
	close(t.updated)
	t.updated = make(chan struct{})
	t.mu.Unlock()

	if res.Err != nil {
		t.notify(context.Background(), events.TopicSearchFailed, events.LevelError, "Search failed, try again", map[string]string{"term": res.Term})
	}
}

// Search records the typed term. Lookups run after the debounce delay.
func (t *Terminal) Search(term string) {
	t.mu.Lock()
	t.term = term
	t.mu.Unlock()
	t.searcher.Input(term)
}

// WaitSearch blocks until results for the current term have arrived.
func (t *Terminal) WaitSearch(ctx context.Context) error {
	for {
		t.mu.Lock()
		term := strings.TrimSpace(t.term)
		if term == "" || t.resultsTerm == term {
			t.mu.Unlock()
			return nil
		}
		ch := t.updated
		t.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Select adds a product from the current results to the cart. The search is
// cleared whether or not stock allowed the add.
func (t *Terminal) Select(ctx context.Context, id storeapi.ID) (cart.Line, error) {
	t.mu.Lock()
	var (
		product catalog.Product
		found   bool
	)
	for _, p := range t.results {
		if p.ID == id {
			product, found = p, true
			break
		}
	}
	t.mu.Unlock()
	if !found {
		return cart.Line{}, ErrNotInResults
	}

	line, err := t.cart.Add(product)
	t.clearSearch()
	if err != nil {
		msg := fmt.Sprintf("%s is out of stock", product.Name)
		if errors.Is(err, cart.ErrAtCeiling) {
			msg = fmt.Sprintf("Only %d of %s available", line.Ceiling, product.Name)
		}
		t.notify(ctx, events.TopicCartRejected, events.LevelError, msg, map[string]any{"product_id": id})
		return line, err
	}
	return line, nil
}

// SetQuantity changes a line's quantity; q <= 0 removes it.
func (t *Terminal) SetQuantity(id storeapi.ID, q int) error {
	if !t.hasLine(id) {
		return ErrLineNotFound
	}
	t.cart.SetQuantity(id, q)
	return nil
}

// Remove drops a line. Absent products are ignored.
func (t *Terminal) Remove(id storeapi.ID) { t.cart.Remove(id) }

// SetCustomer records the customer name.
func (t *Terminal) SetCustomer(name string) { t.cart.SetCustomerName(name) }

// SetVoucherCode records the voucher code as typed.
func (t *Terminal) SetVoucherCode(code string) { t.cart.SetVoucherCode(code) }

// ApplyVoucher resolves code, or the stored code when empty.
func (t *Terminal) ApplyVoucher(ctx context.Context, code string) (voucher.Voucher, error) {
	v, err := t.cart.ApplyVoucher(ctx, t.deps.Vouchers, code)
	switch {
	case err == nil:
		obs.Inc(obs.VoucherLookups, "applied")
		t.notify(ctx, events.TopicVoucherApplied, events.LevelSuccess,
			fmt.Sprintf("Voucher applied: %s%% discount", v.DiscountPercentage.String()), map[string]string{"code": v.Name})
	case errors.Is(err, voucher.ErrCodeRequired):
		obs.Inc(obs.VoucherLookups, "blank")
		t.notify(ctx, events.TopicVoucherRejected, events.LevelError, cart.InvalidVoucherMessage, nil)
	case errors.Is(err, cart.ErrSuperseded):
		obs.Inc(obs.VoucherLookups, "superseded")
		return v, err
	case errors.Is(err, voucher.ErrNotFound), errors.Is(err, voucher.ErrInvalid):
		obs.Inc(obs.VoucherLookups, "invalid")
		t.logger.Info().Err(err).Msg("voucher_rejected")
		t.notify(ctx, events.TopicVoucherRejected, events.LevelError, cart.InvalidVoucherMessage, nil)
	default:
		obs.Inc(obs.VoucherLookups, "error")
		t.logger.Warn().Err(err).Msg("voucher_lookup_failed")
		t.notify(ctx, events.TopicVoucherRejected, events.LevelError, cart.InvalidVoucherMessage, nil)
	}
	return v, err
}

// CompleteSale submits the cart, prints the invoice and starts a new bill.
// A print failure does not undo the sale.
func (t *Terminal) CompleteSale(ctx context.Context) (Completed, error) {
	t.mu.Lock()
	if t.completing {
		t.mu.Unlock()
		return Completed{}, ErrSaleInProgress
	}
	t.completing = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.completing = false
		t.mu.Unlock()
	}()

	snap := t.cart.Snapshot()
	receipt, err := t.deps.Sales.Submit(ctx, snap)
	if err != nil {
		msg := "Sale failed"
		var apiErr *storeapi.Error
		switch {
		case errors.Is(err, sale.ErrEmptyCart):
			msg = "Add at least one product before completing the sale"
		case errors.As(err, &apiErr) && apiErr.Message != "":
			msg = "Sale failed: " + apiErr.Message
		}
		t.notify(ctx, events.TopicSaleFailed, events.LevelError, msg, nil)
		return Completed{}, err
	}

	doc := invoice.Build(snap, receipt.Summary, receipt.InvoiceNumber, receipt.CompletedAt, t.deps.Business)
	out := Completed{InvoiceNumber: receipt.InvoiceNumber, GrandTotal: doc.GrandTotal.StringFixed(2), Printed: true}
	if perr := t.deps.Printer.Print(ctx, doc); perr != nil {
		out.Printed = false
		out.PrintError = "Invoice could not be printed"
		t.logger.Error().Err(perr).Str("invoice", receipt.InvoiceNumber).Msg("invoice_print_failed")
		t.notify(ctx, events.TopicInvoicePrintFailed, events.LevelError,
			fmt.Sprintf("Sale %s completed but the invoice could not be printed", receipt.InvoiceNumber), map[string]string{"invoice_number": receipt.InvoiceNumber})
	} else {
		t.notify(ctx, events.TopicInvoicePrinted, events.LevelInfo,
			fmt.Sprintf("Invoice %s sent to printer", receipt.InvoiceNumber), map[string]string{"invoice_number": receipt.InvoiceNumber})
	}

	if !t.cart.ResetIf(snap) {
		t.logger.Info().Str("invoice", receipt.InvoiceNumber).Msg("cart_reset_during_sale")
	}
	t.clearSearch()
	t.mu.Lock()
	t.lastInvoice = receipt.InvoiceNumber
	t.mu.Unlock()

	msg := "Sale completed and printed!"
	if !out.Printed {
		msg = "Sale completed"
	}
	t.notify(ctx, events.TopicSaleCompleted, events.LevelSuccess, msg,
		map[string]string{"invoice_number": receipt.InvoiceNumber, "grand_total": out.GrandTotal})
	return out, nil
}

// NewBill discards the current cart and search.
func (t *Terminal) NewBill(ctx context.Context) {
	t.cart.Reset()
	t.clearSearch()
	t.notify(ctx, events.TopicBillReset, events.LevelInfo, "New bill started", nil)
}

// Dismiss removes a notice from the board.
func (t *Terminal) Dismiss(id string) bool {
	for _, n := range t.board.List() {
		if n.ID.String() == id {
			return t.board.Dismiss(n.ID)
		}
	}
	return false
}

// Cart returns a snapshot of the cart.
func (t *Terminal) Cart() cart.State { return t.cart.Snapshot() }

func (t *Terminal) clearSearch() {
	t.searcher.Cancel()
	t.mu.Lock()
	t.term = ""
	t.resultsTerm = ""
	t.results = nil
	t.showResults = false
	t.searchErr = ""
	t.mu.Unlock()
}

func (t *Terminal) hasLine(id storeapi.ID) bool {
	for _, line := range t.cart.Snapshot().Items {
		if line.ProductID == id {
			return true
		}
	}
	return false
}

func (t *Terminal) notify(ctx context.Context, topic string, level events.Level, msg string, payload any) {
	if _, err := t.bus.Emit(ctx, topic, level, msg, payload); err != nil {
		t.logger.Warn().Err(err).Str("topic", topic).Msg("notice_dispatch_failed")
	}
}
