package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level classifies a notice for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a message raised by a terminal operation, shown to the operator.
type Notice struct {
	ID      uuid.UUID       `json:"id"`
	Topic   string          `json:"topic"`
	Level   Level           `json:"level"`
	Message string          `json:"message"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Notifier reacts to emitted notices (terminal board, logs, etc.).
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n Notice) error { return f(ctx, n) }

// Bus stamps notices and fans them out to downstream notifiers.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
}

// With returns a bus that also delivers to extra. The receiver is unchanged.
func (b *Bus) With(extra ...Notifier) *Bus {
	out := &Bus{}
	if b != nil {
		out.Now = b.Now
		out.Notifiers = append(out.Notifiers, b.Notifiers...)
	}
	out.Notifiers = append(out.Notifiers, extra...)
	return out
}

// Emit builds a notice and dispatches it to every notifier. Notifier failures
// are joined; the notice is still returned.
func (b *Bus) Emit(ctx context.Context, topic string, level Level, message string, payload any) (Notice, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Notice{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Notice{}, fmt.Errorf("events: encode payload: %w", err)
	}
	n := Notice{ID: uuid.New(), Topic: topic, Level: level, Message: message, At: b.now(), Payload: encoded}
	if b == nil {
		return n, nil
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, n); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return n, joined
}

func (b *Bus) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(v) == 0 {
			return nil, nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		return json.Marshal(v)
	}
}

// Board keeps the most recent notices for one terminal, oldest first.
type Board struct {
	mu    sync.Mutex
	limit int
	items []Notice
}

// NewBoard returns a board holding at most limit notices.
func NewBoard(limit int) *Board {
	if limit <= 0 {
		limit = 20
	}
	return &Board{limit: limit}
}

func (b *Board) Notify(_ context.Context, n Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.limit; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
	return nil
}

// List returns a copy of the held notices.
func (b *Board) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notice, len(b.items))
	copy(out, b.items)
	return out
}

// Dismiss removes a notice by id and reports whether it was present.
func (b *Board) Dismiss(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every notice.
func (b *Board) Clear() {
	b.mu.Lock()
	b.items = nil
	b.mu.Unlock()
}

// LogNotifier writes every notice to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) error {
	ev := l.Logger.Info()
	if n.Level == LevelError {
		ev = l.Logger.Warn()
	}
	ev.Str("topic", n.Topic).Str("level", string(n.Level)).Str("notice_id", n.ID.String()).Msg(n.Message)
	return nil
}
