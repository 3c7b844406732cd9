package application

import (
	"context"
	"testing"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/memory"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

var testUser = domain.User{ID: "u1", Email: "ada@example.com", FirstName: "Ada"}

func TestLoginAndExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := NewSessionManager(ctx, memory.NewKVStore(), clock, testLogger, "", time.Hour)

	var states []bool
	m.Subscribe(func(s domain.Session) { states = append(states, s.Authenticated()) })

	s, err := m.Login(ctx, testUser, "tok", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ExpiresAt.Equal(clock.Now().Add(10 * time.Minute)) {
		t.Fatalf("ExpiresAt = %v", s.ExpiresAt)
	}
	clock.Advance(9 * time.Minute)
	if !m.IsAuthenticated() {
		t.Fatalf("expired early")
	}
	clock.Advance(time.Minute)
	if m.IsAuthenticated() {
		t.Fatalf("session did not expire")
	}
	if len(states) != 3 || states[0] || !states[1] || states[2] {
		t.Fatalf("states = %v", states)
	}
}

func TestLoginDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	m := NewSessionManager(context.Background(), memory.NewKVStore(), clock, testLogger, "", 2*time.Hour)
	s, err := m.Login(context.Background(), testUser, "tok", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ExpiresAt.Equal(clock.Now().Add(2 * time.Hour)) {
		t.Fatalf("ExpiresAt = %v", s.ExpiresAt)
	}
}

func TestLoginValidation(t *testing.T) {
	m := NewSessionManager(context.Background(), memory.NewKVStore(), newFakeClock(), testLogger, "", time.Hour)
	_, err := m.Login(context.Background(), domain.User{}, "", time.Hour)
	if !domain.IsKind(err, domain.ErrValidation) || len(err.(*domain.Error).Fields) != 2 {
		t.Fatalf("err = %v", err)
	}
}

func TestReloginReplacesTimer(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := NewSessionManager(ctx, memory.NewKVStore(), clock, testLogger, "", time.Hour)

	_, _ = m.Login(ctx, testUser, "first", 5*time.Minute)
	_, _ = m.Login(ctx, testUser, "second", 30*time.Minute)
	if clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clock.Pending())
	}
	clock.Advance(10 * time.Minute)
	if !m.IsAuthenticated() || m.Current().Token != "second" {
		t.Fatalf("old timer ended the new session")
	}
}

func TestLogoutClearsStorage(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	clock := newFakeClock()
	m := NewSessionManager(ctx, kv, clock, testLogger, "shop", time.Hour)
	_, _ = m.Login(ctx, testUser, "tok", time.Hour)
	if len(kv.Keys()) != 3 {
		t.Fatalf("persisted keys = %v", kv.Keys())
	}

	m.Logout(ctx)
	m.Logout(ctx)
	if m.IsAuthenticated() || len(kv.Keys()) != 0 || clock.Pending() != 0 {
		t.Fatalf("logout left keys %v, pending %d", kv.Keys(), clock.Pending())
	}
}

func TestRestoreSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	clock := newFakeClock()
	first := NewSessionManager(ctx, kv, clock, testLogger, "", time.Hour)
	_, _ = first.Login(ctx, testUser, "tok", time.Hour)

	clock.Advance(30 * time.Minute)
	second := NewSessionManager(ctx, kv, clock, testLogger, "", time.Hour)
	cur := second.Current()
	if cur.Token != "tok" || cur.User.Email != testUser.Email {
		t.Fatalf("restored = %+v", cur)
	}
	clock.Advance(30 * time.Minute)
	if second.IsAuthenticated() {
		t.Fatalf("restored session did not keep its original expiry")
	}
}

func TestRestoreExpiredSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	clock := newFakeClock()
	first := NewSessionManager(ctx, kv, clock, testLogger, "", time.Hour)
	_, _ = first.Login(ctx, testUser, "tok", time.Minute)

	// a restart after expiry: the old manager's timer never runs
	clock.now = clock.now.Add(2 * time.Minute)
	second := NewSessionManager(ctx, kv, clock, testLogger, "", time.Hour)
	if second.IsAuthenticated() || len(kv.Keys()) != 0 {
		t.Fatalf("expired session restored, keys %v", kv.Keys())
	}
}

func TestRestoreIncompleteSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	_ = kv.Set(ctx, storagekeys.AuthToken, []byte(`"tok"`))
	m := NewSessionManager(ctx, kv, newFakeClock(), testLogger, "", time.Hour)
	if m.IsAuthenticated() || len(kv.Keys()) != 0 {
		t.Fatalf("incomplete session restored, keys %v", kv.Keys())
	}
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore after cleanup = %v", err)
	}
}

func TestLoginSurvivesStorageFailure(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(ctx, newFailingKV(false, true), newFakeClock(), testLogger, "", time.Hour)
	if _, err := m.Login(ctx, testUser, "tok", time.Hour); err != nil {
		t.Fatalf("Login = %v", err)
	}
	if !m.IsAuthenticated() {
		t.Fatalf("session not held in memory")
	}
}
