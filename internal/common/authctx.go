package common

import (
	"context"
	"sync"
)

type ctxKey string

const sessionIDKey ctxKey = "session/id"

// WithSessionID stores the terminal session identifier on the provided context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

type tagsKey struct{}

// RequestTags collects identifiers discovered deeper in the handler chain so
// outer middleware (request logging) can report them.
type RequestTags struct {
	mu        sync.Mutex
	sessionID string
	operator  string
}

// WithRequestTags installs an empty tag holder on the context.
func WithRequestTags(ctx context.Context) (context.Context, *RequestTags) {
	tags := &RequestTags{}
	return context.WithValue(ctx, tagsKey{}, tags), tags
}

// TagRequest records the session on the holder installed by WithRequestTags, if any.
func TagRequest(ctx context.Context, sessionID, operator string) {
	tags, ok := ctx.Value(tagsKey{}).(*RequestTags)
	if !ok {
		return
	}
	tags.mu.Lock()
	tags.sessionID = sessionID
	tags.operator = operator
	tags.mu.Unlock()
}

// Values returns the recorded session id and operator.
func (t *RequestTags) Values() (sessionID, operator string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID, t.operator
}
