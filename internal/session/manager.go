package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jobchat/internal/logging"
	"jobchat/internal/store"
)

type Manager struct {
	mu      sync.Mutex
	store   store.Store
	now     func() time.Time
	log     *slog.Logger
	current Session
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// Open restores the session persisted in st. A stored token that no longer
// decodes or has expired is cleared and the manager starts logged out.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store: st,
		now:   time.Now,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}

	token, ok, err := st.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("read persisted token: %w", err)
	}
	if !ok {
		return m, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.apply(ctx, token); err != nil {
		return nil, err
	}
	return m, nil
}

// Login installs token as the current credential. The returned error only
// reports a failure of the durable store; the in-memory session is updated
// regardless.
func (m *Manager) Login(ctx context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(ctx, token)
}

func (m *Manager) Logout(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clear(ctx, "logout")
}

func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.clone()
}

// Refresh logs out when the current token has expired since it was installed.
// It reports whether the session changed.
func (m *Manager) Refresh(ctx context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.LoggedIn() || !m.current.Expired(m.now()) {
		return m.current.clone(), false, nil
	}
	s, err := m.clear(ctx, "token expired")
	return s, true, err
}

func (m *Manager) apply(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return m.clear(ctx, "empty token")
	}

	c, err := decodeClaims(token)
	if err != nil {
		m.log.Debug("discarding undecodable token", "error", err)
		return m.clear(ctx, "malformed token")
	}
	if !c.ExpiresAt.IsZero() && m.now().After(c.ExpiresAt) {
		m.log.Debug("discarding expired token", "expired_at", c.ExpiresAt)
		return m.clear(ctx, "token expired")
	}

	m.current = Session{
		Token: token,
		Identity: &Identity{
			ID:    c.Subject,
			Email: c.Email,
			Role:  c.Role,
		},
		ExpiresAt: c.ExpiresAt,
	}
	m.log.Info("session established", "email", c.Email, "role", c.Role)

	if err := m.store.Set(ctx, TokenKey, token); err != nil {
		return m.current.clone(), fmt.Errorf("persist token: %w", err)
	}
	return m.current.clone(), nil
}

func (m *Manager) clear(ctx context.Context, reason string) (Session, error) {
	if m.current.LoggedIn() {
		m.log.Info("session cleared", "reason", reason, "email", m.current.Email())
	}
	m.current = LoggedOut
	if err := m.store.Remove(ctx, TokenKey); err != nil {
		return LoggedOut, fmt.Errorf("clear persisted token: %w", err)
	}
	return LoggedOut, nil
}

func (s Session) clone() Session {
	if s.Identity == nil {
		return s
	}
	id := *s.Identity
	s.Identity = &id
	return s
}
