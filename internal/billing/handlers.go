package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-terminal/internal/cart"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/sale"
	"github.com/noah-isme/pos-terminal/internal/session"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

// Handler exposes the billing screen. Routes must sit behind
// session.Middleware.Require. SearchWait bounds how long a search request
// with wait=true blocks.
type Handler struct {
	Registry   *Registry
	SearchWait time.Duration
}

type searchRequest struct {
	Term string `json:"term"`
	Wait bool   `json:"wait"`
}

type addItemRequest struct {
	ProductID storeapi.ID `json:"product_id"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type customerRequest struct {
	CustomerName string `json:"customer_name"`
}

type voucherRequest struct {
	Code string `json:"code"`
}

func (h *Handler) terminal(w http.ResponseWriter, r *http.Request) (*Terminal, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return nil, false
	}
	return h.Registry.Get(s.ID, s.Token), true
}

// Get handles GET /api/v1/billing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	common.Data(w, http.StatusOK, t.View())
}

// Search handles PUT /api/v1/billing/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t.Search(req.Term)
	if req.Wait {
		wait := h.SearchWait
		if wait <= 0 {
			wait = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		if err := t.WaitSearch(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			writeError(w, err)
			return
		}
	}
	common.Data(w, http.StatusOK, t.View())
}

// AddItem handles POST /api/v1/billing/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, common.BadRequest("product_id is required"))
		return
	}
	if _, err := t.Select(r.Context(), req.ProductID); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, t.View())
}

// UpdateItem handles PATCH /api/v1/billing/items/{productID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := t.SetQuantity(storeapi.ID(chi.URLParam(r, "productID")), req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, t.View())
}

// RemoveItem handles DELETE /api/v1/billing/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	t.Remove(storeapi.ID(chi.URLParam(r, "productID")))
	common.Data(w, http.StatusOK, t.View())
}

// SetCustomer handles PUT /api/v1/billing/customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t.SetCustomer(req.CustomerName)
	common.Data(w, http.StatusOK, t.View())
}

// SetVoucher handles PUT /api/v1/billing/voucher.
func (h *Handler) SetVoucher(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req voucherRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t.SetVoucherCode(req.Code)
	common.Data(w, http.StatusOK, t.View())
}

// ApplyVoucher handles POST /api/v1/billing/voucher/apply. An empty body
// applies the stored code.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req voucherRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if _, err := t.ApplyVoucher(r.Context(), req.Code); err != nil {
		writeErrorWithView(w, err, t.View())
		return
	}
	common.Data(w, http.StatusOK, t.View())
}

// CompleteSale handles POST /api/v1/billing/sale.
func (h *Handler) CompleteSale(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	done, err := t.CompleteSale(r.Context())
	if err != nil {
		writeErrorWithView(w, err, t.View())
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"sale": done, "view": t.View()})
}

// Reset handles POST /api/v1/billing/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	t.NewBill(r.Context())
	common.Data(w, http.StatusOK, t.View())
}

// DismissNotice handles DELETE /api/v1/billing/notices/{id}.
func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	if !t.Dismiss(chi.URLParam(r, "id")) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "notice not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, appError(err))
}

// writeErrorWithView attaches the refreshed screen so the client can render
// the voucher error or notices without another round trip.
func writeErrorWithView(w http.ResponseWriter, err error, v View) {
	appErr := appError(err)
	common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, map[string]any{"view": v})
}

func appError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrNotInResults):
		return common.NewAppError("NOT_IN_RESULTS", "product is not in the current search results", http.StatusNotFound, err)
	case errors.Is(err, ErrLineNotFound):
		return common.NewAppError("NOT_IN_CART", "product is not in the cart", http.StatusNotFound, err)
	case errors.Is(err, cart.ErrOutOfStock):
		return common.NewAppError("OUT_OF_STOCK", "product is out of stock", http.StatusConflict, err)
	case errors.Is(err, cart.ErrAtCeiling):
		return common.NewAppError("STOCK_LIMIT", "no more stock available for this product", http.StatusConflict, err)
	case errors.Is(err, voucher.ErrCodeRequired):
		return common.NewAppError("VOUCHER_CODE_REQUIRED", "enter a voucher code", http.StatusBadRequest, err)
	case errors.Is(err, voucher.ErrNotFound), errors.Is(err, voucher.ErrInvalid):
		return common.NewAppError("VOUCHER_INVALID", cart.InvalidVoucherMessage, http.StatusUnprocessableEntity, err)
	case errors.Is(err, cart.ErrSuperseded):
		return common.NewAppError("SUPERSEDED", "bill was reset while the voucher was checked", http.StatusConflict, err)
	case errors.Is(err, sale.ErrEmptyCart):
		return common.NewAppError("EMPTY_CART", "add at least one product before completing the sale", http.StatusBadRequest, err)
	case errors.Is(err, ErrSaleInProgress):
		return common.NewAppError("SALE_IN_PROGRESS", "a sale is already being submitted", http.StatusConflict, err)
	}
	if errors.Is(err, sale.ErrSaleFailed) {
		appErr := storeapi.AsAppError(err)
		return common.NewAppError("SALE_FAILED", appErr.Message, appErr.HTTPStatus, err)
	}
	return storeapi.AsAppError(err)
}
