// Package session keeps operator logins: the upstream bearer token and profile
// behind an opaque terminal session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

var (
	// ErrNoSession is returned when the session id is unknown.
	ErrNoSession = errors.New("session not found")
	// ErrSessionExpired is returned when the upstream token is expired or was rejected.
	ErrSessionExpired = errors.New("session expired")
)

// Profile is the operator as described by the store API.
type Profile struct {
	ID   storeapi.ID `json:"id"`
	Name string      `json:"name"`
	Role string      `json:"role"`
}

// Session binds a terminal session id to an upstream token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt comes from the token's exp claim; zero when the token is opaque.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Credentials is the login form.
type Credentials struct {
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,max=256"`
}

// Manager creates, resumes and ends sessions.
type Manager struct {
	API      storeapi.Caller
	Store    TokenStore
	Validate *validator.Validate
	TTL      time.Duration
	Skew     time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time

	mu    sync.Mutex
	hooks []func(ctx context.Context, id string)
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// OnLogout registers fn to run after a session ends.
func (m *Manager) OnLogout(fn func(ctx context.Context, id string)) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

// Login authenticates against POST /user/login and stores the token under a
// fresh session id.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	creds.Name = strings.TrimSpace(creds.Name)
	if m.Validate != nil {
		if err := m.Validate.Struct(creds); err != nil {
			return Session{}, common.ValidationError(err)
		}
	}
	var out struct {
		Token string `json:"token"`
		Profile
	}
	if err := m.API.Send(ctx, http.MethodPost, "/user/login", creds, &out); err != nil {
		m.Logger.Info().Str("operator", creds.Name).Err(err).Msg("login_rejected")
		return Session{}, err
	}
	if out.Token == "" {
		return Session{}, errors.New("session: login response carried no token")
	}
	exp, err := m.expiry(out.Token)
	if err != nil {
		return Session{}, err
	}
	s := Session{
		ID:        uuid.NewString(),
		Token:     out.Token,
		Profile:   out.Profile,
		CreatedAt: m.now(),
		ExpiresAt: exp,
	}
	if err := m.Store.Save(ctx, s, m.ttl(s)); err != nil {
		return Session{}, fmt.Errorf("session: save: %w", err)
	}
	m.Logger.Info().Str("session_id", s.ID).Str("operator", s.Profile.Name).Msg("session_started")
	return s, nil
}

// Authenticate loads a session and checks token expiry without calling the
// store API. Expired sessions are removed.
func (m *Manager) Authenticate(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrNoSession
	}
	s, err := m.Store.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if _, err := m.expiry(s.Token); err != nil {
		m.end(ctx, id, "expired")
		return Session{}, err
	}
	return s, nil
}

// Resume re-validates a stored session and refreshes the operator profile
// from GET /user. A token the store API rejects ends the session.
func (m *Manager) Resume(ctx context.Context, id string) (Session, error) {
	s, err := m.Authenticate(ctx, id)
	if err != nil {
		return Session{}, err
	}
	var profile Profile
	if _, err := m.API.Get(storeapi.WithToken(ctx, s.Token), "/user", nil, &profile); err != nil {
		if errors.Is(err, storeapi.ErrUnauthorized) {
			m.end(ctx, id, "rejected")
			return Session{}, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return Session{}, err
	}
	s.Profile = profile
	if err := m.Store.Save(ctx, s, m.ttl(s)); err != nil {
		m.Logger.Warn().Err(err).Str("session_id", id).Msg("session_refresh_failed")
	}
	return s, nil
}

// Logout deletes the session and runs logout hooks. Unknown ids are ignored.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	if err := m.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	m.runHooks(ctx, id)
	m.Logger.Info().Str("session_id", id).Msg("session_ended")
	return nil
}

func (m *Manager) end(ctx context.Context, id, reason string) {
	if err := m.Store.Delete(ctx, id); err != nil {
		m.Logger.Warn().Err(err).Str("session_id", id).Msg("session_delete_failed")
	}
	m.runHooks(ctx, id)
	m.Logger.Info().Str("session_id", id).Str("reason", reason).Msg("session_ended")
}

func (m *Manager) runHooks(ctx context.Context, id string) {
	m.mu.Lock()
	hooks := append([]func(context.Context, string){}, m.hooks...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx, id)
	}
}

// expiry returns the token's exp claim and fails when it has passed. Tokens
// that are not JWTs never expire locally; the store API decides.
func (m *Manager) expiry(token string) (time.Time, error) {
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return time.Time{}, nil
	}
	opts := []jwt.ValidateOption{jwt.WithClock(jwt.ClockFunc(m.now))}
	if m.Skew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(m.Skew))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return tok.Expiration(), fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return tok.Expiration(), nil
}

func (m *Manager) ttl(s Session) time.Duration {
	ttl := m.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if !s.ExpiresAt.IsZero() {
		if left := s.ExpiresAt.Sub(m.now()) + m.Skew; left > 0 && left < ttl {
			ttl = left
		}
	}
	return ttl
}
