package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/chabakapro/admin/internal/dashboard"
	"github.com/chabakapro/admin/internal/model"
)

// --- モック定義 ---

type mockGate struct {
	authenticateFn func(ctx context.Context, candidate string) (*model.AdminSession, error)
	isValidFn      func(ctx context.Context, id string) bool
	logoutFn       func(ctx context.Context, id string) error
}

func (m *mockGate) Authenticate(ctx context.Context, candidate string) (*model.AdminSession, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, candidate)
	}
	return nil, model.NewInvalidPasswordError()
}

func (m *mockGate) IsSessionValid(ctx context.Context, id string) bool {
	if m.isValidFn != nil {
		return m.isValidFn(ctx, id)
	}
	return id == "sess-ok"
}

func (m *mockGate) Logout(ctx context.Context, id string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, id)
	}
	return nil
}

// plainCookies は署名なしの "session" Cookieを読み書きするテスト用実装。
type plainCookies struct {
	writeErr error
}

func (c plainCookies) Write(w http.ResponseWriter, sessionID string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	http.SetCookie(w, &http.Cookie{Name: "session", Value: sessionID, Path: "/"})
	return nil
}

func (plainCookies) Read(r *http.Request) (string, error) {
	c, err := r.Cookie("session")
	if err != nil || c.Value == "" {
		return "", errors.New("no session")
	}
	return c.Value, nil
}

func (plainCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
}

type mockDashboard struct {
	mu sync.Mutex

	openFn      func(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	dashboardFn func(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	refreshFn   func(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	listFn      func(ctx context.Context, viewer dashboard.Viewer, state dashboard.ViewState) (*dashboard.Listing, error)
	updateFn    func(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string, status model.ContactStatus) (*dashboard.Overview, error)
	deleteFn    func(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string) (*dashboard.Overview, error)
	toggleFn    func(ctx context.Context, viewer dashboard.Viewer, id string, current bool) (*dashboard.Overview, error)

	closed []string
}

func (m *mockDashboard) Open(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview {
	if m.openFn != nil {
		return m.openFn(ctx, viewer)
	}
	return &dashboard.Overview{}
}

func (m *mockDashboard) Dashboard(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, viewer)
	}
	return &dashboard.Overview{}
}

func (m *mockDashboard) Refresh(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, viewer)
	}
	return &dashboard.Overview{}
}

func (m *mockDashboard) List(ctx context.Context, viewer dashboard.Viewer, state dashboard.ViewState) (*dashboard.Listing, error) {
	if m.listFn != nil {
		return m.listFn(ctx, viewer, state)
	}
	return &dashboard.Listing{}, nil
}

func (m *mockDashboard) UpdateStatus(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string, status model.ContactStatus) (*dashboard.Overview, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, viewer, resource, id, status)
	}
	return &dashboard.Overview{}, nil
}

func (m *mockDashboard) Delete(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string) (*dashboard.Overview, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, viewer, resource, id)
	}
	return &dashboard.Overview{}, nil
}

func (m *mockDashboard) ToggleTestimonial(ctx context.Context, viewer dashboard.Viewer, id string, current bool) (*dashboard.Overview, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, viewer, id, current)
	}
	return &dashboard.Overview{}, nil
}

func (m *mockDashboard) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, sessionID)
}

func (m *mockDashboard) closedSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.closed...)
}

// fixedResolver はスキームとホストをそのまま連結して返す。
type fixedResolver struct{}

func (fixedResolver) Resolve(scheme, hostport string) string {
	return scheme + "://" + hostport + "/backend"
}

type mockLoginRecorder struct {
	results []bool
}

func (m *mockLoginRecorder) RecordLogin(success bool) {
	m.results = append(m.results, success)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
