package session

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// HeaderName carries the session id for clients that do not keep cookies.
const HeaderName = "X-Session-ID"

type sessionKey struct{}

// FromContext returns the session attached by Middleware.Require.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Middleware resolves the session for each request.
type Middleware struct {
	Manager    *Manager
	CookieName string
}

// Require rejects requests without a live session. On success the context
// carries the session, its id and the upstream bearer token.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.sessionID(r)
		if id == "" {
			common.WriteError(w, errorFor(ErrNoSession))
			return
		}
		s, err := m.Manager.Authenticate(r.Context(), id)
		if err != nil {
			common.WriteError(w, errorFor(err))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		ctx = common.WithSessionID(ctx, s.ID)
		ctx = storeapi.WithToken(ctx, s.Token)
		common.TagRequest(ctx, s.ID, s.Profile.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects operators whose profile role is not listed. It must run
// after Require. The store API enforces roles too; this keeps cashiers off
// admin screens without a round trip.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := FromContext(r.Context())
			if !ok {
				common.WriteError(w, errorFor(ErrNoSession))
				return
			}
			if !slices.ContainsFunc(roles, func(role string) bool { return strings.EqualFold(role, s.Profile.Role) }) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) sessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderName)); v != "" {
		return v
	}
	if m.CookieName != "" {
		if cookie, err := r.Cookie(m.CookieName); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}

func errorFor(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return common.NewAppError("SESSION_EXPIRED", "session expired, please login again", http.StatusUnauthorized, err)
	case errors.Is(err, ErrNoSession):
		return common.NewAppError("UNAUTHORIZED", "login required", http.StatusUnauthorized, err)
	default:
		return storeapi.AsAppError(err)
	}
}
