package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/crypto"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

// DefaultSessionTTL is used when Login is called without an explicit lifetime.
const DefaultSessionTTL = 24 * time.Hour

var errIncompleteSession = errors.New("persisted session is incomplete")

// SessionManager owns the single client session and its expiry timer.
//
// At most one timer is live at a time. Each armed timer carries the generation it was armed
// in; cancelling or re-arming bumps the generation, so a callback that was already in flight
// when its timer was cancelled finds a stale generation and does nothing.
type SessionManager struct {
	store      *Store[domain.Session]
	kv         domain.KVStore
	clock      domain.Clock
	logger     domain.Logger
	defaultTTL time.Duration

	tokenKey, userKey, expirationKey string

	timer      domain.Timer
	generation uint64
}

// NewSessionManager creates the manager and restores any persisted session.
func NewSessionManager(ctx context.Context, kv domain.KVStore, clock domain.Clock, logger domain.Logger, namespace string, defaultTTL time.Duration) *SessionManager {
	if kv == nil {
		panic("kv store cannot be nil in NewSessionManager")
	}
	if clock == nil {
		panic("clock cannot be nil in NewSessionManager")
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultSessionTTL
	}
	m := &SessionManager{
		store:         NewStore(domain.Session{}),
		kv:            kv,
		clock:         clock,
		logger:        logger,
		defaultTTL:    defaultTTL,
		tokenKey:      storagekeys.Namespaced(namespace, storagekeys.AuthToken),
		userKey:       storagekeys.Namespaced(namespace, storagekeys.AuthUser),
		expirationKey: storagekeys.Namespaced(namespace, storagekeys.AuthExpiration),
	}
	if err := m.Restore(ctx); err != nil {
		m.logger.Warn(ctx, "Discarded persisted session", "error", err.Error())
	}
	return m
}

// Current returns the session; the zero Session means anonymous.
func (m *SessionManager) Current() domain.Session {
	return m.store.Current()
}

// IsAuthenticated reports whether a session is live.
func (m *SessionManager) IsAuthenticated() bool {
	return m.store.Current().Authenticated()
}

// Subscribe observes session changes.
func (m *SessionManager) Subscribe(fn func(domain.Session)) *Subscription[domain.Session] {
	return m.store.Subscribe(fn)
}

// Login replaces any existing session with a new one that expires after expiresIn
// (the default TTL when expiresIn <= 0).
func (m *SessionManager) Login(ctx context.Context, user domain.User, token string, expiresIn time.Duration) (domain.Session, error) {
	var fields []domain.FieldError
	if strings.TrimSpace(user.ID) == "" {
		fields = append(fields, domain.FieldError{Field: "user.id", Code: domain.CodeRequired, Message: "user id is required"})
	}
	if strings.TrimSpace(token) == "" {
		fields = append(fields, domain.FieldError{Field: "token", Code: domain.CodeRequired, Message: "token is required"})
	}
	if len(fields) > 0 {
		return domain.Session{}, domain.NewValidationError(fields...)
	}
	if expiresIn <= 0 {
		expiresIn = m.defaultTTL
	}

	m.cancelTimer()
	session := domain.Session{User: user, Token: token, ExpiresAt: m.clock.Now().Add(expiresIn).UTC()}
	m.store.Set(session)
	if err := m.persist(ctx, session); err != nil {
		m.logger.Warn(ctx, "Failed to persist session; it will not survive a restart", "user_id", user.ID, "error", err.Error())
	}
	m.arm(session.ExpiresAt)
	metrics.IncrementSessionEvent("login")
	m.logger.Info(ctx, "Session started",
		"user_id", user.ID,
		"token_fingerprint", crypto.Fingerprint(token),
		"expires_at", session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

// Logout ends the session, clears persisted state and cancels the expiry timer. Safe to call
// when already anonymous.
func (m *SessionManager) Logout(ctx context.Context) {
	m.end(ctx, "logout")
}

// Restore loads a persisted session. An already-expired session is logged out instead of restored.
func (m *SessionManager) Restore(ctx context.Context) error {
	session, found, err := m.readPersisted(ctx)
	if err != nil {
		metrics.IncrementStorageFailure("session", "load")
		m.end(ctx, "restore_failed")
		return domain.NewStorageError(m.tokenKey, err)
	}
	if !found {
		return nil
	}
	if !session.ExpiresAt.After(m.clock.Now()) {
		m.logger.Info(ctx, "Persisted session already expired; logging out",
			"user_id", session.User.ID, "expired_at", session.ExpiresAt.Format(time.RFC3339))
		m.end(ctx, "restore_expired")
		return nil
	}
	m.cancelTimer()
	m.store.Set(session)
	m.arm(session.ExpiresAt)
	metrics.IncrementSessionEvent("restored")
	m.logger.Info(ctx, "Session restored", "user_id", session.User.ID, "expires_at", session.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (m *SessionManager) arm(expiresAt time.Time) {
	m.generation++
	gen := m.generation
	delay := expiresAt.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	m.timer = m.clock.AfterFunc(delay, func() { m.expire(gen) })
}

func (m *SessionManager) expire(gen uint64) {
	if gen != m.generation || m.timer == nil {
		return
	}
	m.timer = nil
	m.end(context.Background(), "expired")
}

func (m *SessionManager) cancelTimer() {
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *SessionManager) end(ctx context.Context, reason string) {
	m.cancelTimer()
	prev := m.store.Current()
	if prev.Authenticated() {
		m.store.Set(domain.Session{})
	}
	for _, key := range []string{m.tokenKey, m.userKey, m.expirationKey} {
		if err := m.kv.Delete(ctx, key); err != nil {
			metrics.IncrementStorageFailure("session", "delete")
			m.logger.Warn(ctx, "Failed to clear persisted session key", "key", key, "error", err.Error())
		}
	}
	if prev.Authenticated() || reason != "logout" {
		metrics.IncrementSessionEvent(reason)
	}
	if prev.Authenticated() {
		m.logger.Info(ctx, "Session ended", "reason", reason, "user_id", prev.User.ID)
	}
}

func (m *SessionManager) persist(ctx context.Context, s domain.Session) error {
	values := []struct {
		key string
		v   any
	}{
		{m.tokenKey, s.Token},
		{m.userKey, s.User},
		{m.expirationKey, s.ExpiresAt},
	}
	for _, kv := range values {
		payload, err := json.Marshal(kv.v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", kv.key, err)
		}
		if err := m.kv.Set(ctx, kv.key, payload); err != nil {
			metrics.IncrementStorageFailure("session", "save")
			return domain.NewStorageError(kv.key, err)
		}
	}
	return nil
}

func (m *SessionManager) readPersisted(ctx context.Context) (domain.Session, bool, error) {
	rawToken, tokenFound, err := m.kv.Get(ctx, m.tokenKey)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read %s: %w", m.tokenKey, err)
	}
	rawUser, userFound, err := m.kv.Get(ctx, m.userKey)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read %s: %w", m.userKey, err)
	}
	rawExp, expFound, err := m.kv.Get(ctx, m.expirationKey)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read %s: %w", m.expirationKey, err)
	}
	if !tokenFound && !userFound && !expFound {
		return domain.Session{}, false, nil
	}
	if !tokenFound || !userFound || !expFound {
		return domain.Session{}, false, errIncompleteSession
	}

	var s domain.Session
	if err := json.Unmarshal(rawToken, &s.Token); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode %s: %w", m.tokenKey, err)
	}
	if err := json.Unmarshal(rawUser, &s.User); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode %s: %w", m.userKey, err)
	}
	if err := json.Unmarshal(rawExp, &s.ExpiresAt); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode %s: %w", m.expirationKey, err)
	}
	if s.Token == "" || s.User.ID == "" {
		return domain.Session{}, false, errIncompleteSession
	}
	return s, true, nil
}
