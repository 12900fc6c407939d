package voucher

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Handler exposes voucher management endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/vouchers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := common.ParseListQuery(r, 10)
	rows, page, err := h.Service.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows, "pagination": page.Pagination(q.Limit)})
}

// Create handles POST /api/v1/vouchers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.Service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/v1/vouchers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, storeapi.AsAppError(err))
}
