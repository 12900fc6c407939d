package invoice

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Handler exposes the invoice browser.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := common.ParseListQuery(r, 10)
	rows, page, err := h.Service.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows, "pagination": page.Pagination(q.Limit)})
}

// Get handles GET /api/v1/invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, d)
}

// Print handles POST /api/v1/invoices/{id}/print.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Reprint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusAccepted, map[string]any{"invoice_number": doc.Number, "printer": h.Service.Printer.Kind()})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrPrintFailed) {
		common.WriteError(w, common.NewAppError("PRINT_FAILED", "invoice could not be printed", http.StatusBadGateway, err))
		return
	}
	common.WriteError(w, storeapi.AsAppError(err))
}
