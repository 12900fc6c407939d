// Package storeapitest runs an in-process store API for tests.
package storeapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/resilience"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// Server is a fake store API. Routes use net/http patterns relative to /api,
// e.g. "GET /product/search".
type Server struct {
	*httptest.Server
	Client *storeapi.Client

	mu    sync.Mutex
	calls map[string]int
}

// New starts a fake store API serving routes and returns a client bound to it.
func New(t testing.TB, routes map[string]http.HandlerFunc) *Server {
	t.Helper()
	s := &Server{calls: map[string]int{}}
	mux := http.NewServeMux()
	for pattern, h := range routes {
		method, path, _ := strings.Cut(pattern, " ")
		key := pattern
		handler := h
		mux.HandleFunc(method+" /api"+path, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls[key]++
			s.mu.Unlock()
			handler(w, r)
		})
	}
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)

	cl, err := storeapi.New(storeapi.Options{
		BaseURL: s.Server.URL + "/api",
		Timeout: 2 * time.Second,
		Breaker: resilience.NewBreaker(1000, 1, time.Minute),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("storeapitest: %v", err)
	}
	s.Client = cl
	return s
}

// Calls reports how many times the route pattern was hit.
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// OK writes a successful envelope carrying data.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// Paged writes a successful envelope with pagination metadata.
func Paged(w http.ResponseWriter, data any, total, page, pages int) {
	write(w, http.StatusOK, map[string]any{"success": true, "data": data, "total": total, "page": page, "pages": pages})
}

// Fail writes an unsuccessful envelope with the given status.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, map[string]any{"success": false, "error": message})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
