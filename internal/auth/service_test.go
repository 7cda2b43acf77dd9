package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chabakapro/admin/internal/model"
)

// --- モック定義 ---

// memoryStore はSessionStoreのインメモリ実装。
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.AdminSession
	findErr  error
	saveErr  error
	deleted  []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]*model.AdminSession{}}
}

func (m *memoryStore) Save(ctx context.Context, session *model.AdminSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*model.AdminSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func newTestGate(t *testing.T, store SessionStore, now time.Time) *Gate {
	t.Helper()
	g := NewGate(store, hashPassword(t, "chabaka2024"), 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.nowFunc = func() time.Time { return now }
	return g
}

var gateNow = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

// --- テスト ---

func TestGate_Authenticate_CorrectPassword(t *testing.T) {
	store := newMemoryStore()
	g := newTestGate(t, store, gateNow)

	session, err := g.Authenticate(context.Background(), "chabaka2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if !session.Authenticated || !session.IssuedAt.Equal(gateNow) {
		t.Errorf("session = %+v", session)
	}
	if !store.has(session.ID) {
		t.Error("session should be persisted")
	}
	if !g.IsSessionValid(context.Background(), session.ID) {
		t.Error("fresh session should be valid")
	}
}

func TestGate_Authenticate_WrongPassword(t *testing.T) {
	store := newMemoryStore()
	g := newTestGate(t, store, gateNow)

	session, err := g.Authenticate(context.Background(), "wrong")

	if session != nil {
		t.Errorf("session = %+v, want nil", session)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidPassword {
		t.Fatalf("expected INVALID_PASSWORD, got %v", err)
	}
	if apiErr.Message != "Mot de passe incorrect" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if len(store.sessions) != 0 {
		t.Error("nothing should be persisted on mismatch")
	}
}

func TestGate_Authenticate_SaveError(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("db down")
	g := newTestGate(t, store, gateNow)

	if _, err := g.Authenticate(context.Background(), "chabaka2024"); err == nil {
		t.Fatal("expected error when the session cannot be saved")
	}
}

func TestGate_IsSessionValid_Age(t *testing.T) {
	tests := []struct {
		name      string
		issuedAt  time.Time
		want      bool
		wantClear bool
	}{
		{"issued 23h ago", gateNow.Add(-23 * time.Hour), true, false},
		{"issued just now", gateNow, true, false},
		{"issued exactly 24h ago", gateNow.Add(-24 * time.Hour), false, true},
		{"issued 25h ago", gateNow.Add(-25 * time.Hour), false, true},
		{"issued in the future", gateNow.Add(time.Hour), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.sessions["s1"] = &model.AdminSession{ID: "s1", Authenticated: true, IssuedAt: tt.issuedAt}
			g := newTestGate(t, store, gateNow)

			if got := g.IsSessionValid(context.Background(), "s1"); got != tt.want {
				t.Errorf("IsSessionValid() = %v, want %v", got, tt.want)
			}
			if cleared := !store.has("s1"); cleared != tt.wantClear {
				t.Errorf("cleared = %v, want %v", cleared, tt.wantClear)
			}
		})
	}
}

func TestGate_IsSessionValid_NotAuthenticated(t *testing.T) {
	store := newMemoryStore()
	store.sessions["s1"] = &model.AdminSession{ID: "s1", Authenticated: false, IssuedAt: gateNow}
	g := newTestGate(t, store, gateNow)

	if g.IsSessionValid(context.Background(), "s1") {
		t.Error("unauthenticated session should be invalid")
	}
	if store.has("s1") {
		t.Error("unauthenticated session should be cleared")
	}
}

func TestGate_IsSessionValid_MissingOrEmpty(t *testing.T) {
	g := newTestGate(t, newMemoryStore(), gateNow)

	if g.IsSessionValid(context.Background(), "") {
		t.Error("empty id should be invalid")
	}
	if g.IsSessionValid(context.Background(), "unknown") {
		t.Error("unknown id should be invalid")
	}
}

func TestGate_IsSessionValid_StoreErrorFailsClosed(t *testing.T) {
	store := newMemoryStore()
	store.findErr = errors.New("connection refused")
	g := newTestGate(t, store, gateNow)

	if g.IsSessionValid(context.Background(), "s1") {
		t.Error("store errors should be treated as invalid")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "s1" {
		t.Errorf("deleted = %v, want [s1]", store.deleted)
	}
}

func TestGate_Logout_DeletesSession(t *testing.T) {
	store := newMemoryStore()
	store.sessions["s1"] = &model.AdminSession{ID: "s1", Authenticated: true, IssuedAt: gateNow}
	g := newTestGate(t, store, gateNow)

	if err := g.Logout(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.has("s1") {
		t.Error("session should be deleted")
	}
	if g.IsSessionValid(context.Background(), "s1") {
		t.Error("logged out session should be invalid")
	}
	if err := g.Logout(context.Background(), ""); err != nil {
		t.Errorf("Logout(\"\") = %v, want nil", err)
	}
}

func TestNewGate_DefaultTTL(t *testing.T) {
	g := NewGate(newMemoryStore(), "", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if g.TTL() != DefaultSessionTTL {
		t.Errorf("TTL = %v, want %v", g.TTL(), DefaultSessionTTL)
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session ID: %s", id)
		}
		seen[id] = true
	}
}
