package analytics

import (
	"net/http"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Handler exposes the dashboard.
type Handler struct {
	Svc *Service
}

// Overview handles GET /api/v1/analytics/overview. ?refresh=1 bypasses the cache.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	refresh := r.URL.Query().Get("refresh")
	out, err := h.Svc.Overview(r.Context(), refresh == "1" || refresh == "true")
	if err != nil {
		common.WriteError(w, storeapi.AsAppError(err))
		return
	}
	common.Data(w, http.StatusOK, out)
}
