package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/noah-isme/pos-terminal/internal/common"
)

// Handler exposes login, logout and profile endpoints.
type Handler struct {
	Manager        *Manager
	Middleware     Middleware
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

type loginResponse struct {
	SessionID string     `json:"session_id"`
	User      Profile    `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Login handles POST /api/v1/session/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := common.DecodeJSON(r, &creds); err != nil {
		common.WriteError(w, err)
		return
	}
	s, err := h.Manager.Login(r.Context(), creds)
	if err != nil {
		common.WriteError(w, errorFor(err))
		return
	}
	h.setCookie(w, s)
	resp := loginResponse{SessionID: s.ID, User: s.Profile}
	if !s.ExpiresAt.IsZero() {
		resp.ExpiresAt = &s.ExpiresAt
	}
	common.Data(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/session/logout. It always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.Middleware.sessionID(r); id != "" {
		if err := h.Manager.Logout(r.Context(), id); err != nil {
			h.Manager.Logger.Warn().Err(err).Msg("logout_failed")
		}
	}
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/session/me, re-validating the token upstream.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Resume(r.Context(), h.Middleware.sessionID(r))
	if err != nil {
		if errors.Is(err, ErrNoSession) || errors.Is(err, ErrSessionExpired) {
			h.clearCookie(w)
		}
		common.WriteError(w, errorFor(err))
		return
	}
	common.Data(w, http.StatusOK, s.Profile)
}

func (h *Handler) setCookie(w http.ResponseWriter, s Session) {
	cookie := &http.Cookie{
		Name:     h.Middleware.CookieName,
		Value:    s.ID,
		Domain:   h.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
	if !s.ExpiresAt.IsZero() {
		cookie.Expires = s.ExpiresAt
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Middleware.CookieName,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}
