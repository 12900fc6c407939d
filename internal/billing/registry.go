package billing

import (
	"sync"

	"github.com/noah-isme/pos-terminal/internal/obs"
)

// Registry maps session ids to terminals. Terminals are created on first use
// and dropped on logout.
type Registry struct {
	deps Deps

	mu        sync.Mutex
	terminals map[string]*Terminal
}

// NewRegistry returns an empty registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, terminals: map[string]*Terminal{}}
}

// Get returns the session's terminal, opening one if needed.
func (r *Registry) Get(sessionID, token string) *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.terminals[sessionID]; ok {
		return t
	}
	t := NewTerminal(sessionID, token, r.deps)
	r.terminals[sessionID] = t
	if obs.ActiveTerminals != nil {
		obs.ActiveTerminals.Inc()
	}
	r.deps.Logger.Info().Str("session_id", sessionID).Msg("terminal_opened")
	return t
}

// Drop closes and forgets the session's terminal. Unknown ids are ignored.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	t, ok := r.terminals[sessionID]
	delete(r.terminals, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	t.Close()
	if obs.ActiveTerminals != nil {
		obs.ActiveTerminals.Dec()
	}
	r.deps.Logger.Info().Str("session_id", sessionID).Msg("terminal_closed")
}

// Len reports how many terminals are open.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terminals)
}

// Close drops every terminal.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.terminals))
	for id := range r.terminals {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Drop(id)
	}
}
