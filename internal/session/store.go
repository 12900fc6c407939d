package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/pos-terminal/internal/cache"
)

// TokenStore persists sessions between requests.
type TokenStore interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	// Load returns ErrNoSession for unknown or lapsed ids.
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. Sessions do not survive restarts.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	Now   func() time.Time
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryEntry{}}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) Save(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = memoryEntry{session: s, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.items[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !m.now().Before(entry.expires) {
		delete(m.items, id)
		return Session{}, ErrNoSession
	}
	return entry.session, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps sessions in Redis so any instance behind a load balancer
// can serve a terminal.
type RedisStore struct {
	Client redis.UniversalClient
}

func (r RedisStore) Save(ctx context.Context, s Session, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, cache.KeySession(s.ID), payload, ttl).Err()
}

func (r RedisStore) Load(ctx context.Context, id string) (Session, error) {
	raw, err := r.Client.Get(ctx, cache.KeySession(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	return s, nil
}

func (r RedisStore) Delete(ctx context.Context, id string) error {
	return r.Client.Del(ctx, cache.KeySession(id)).Err()
}
