package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chabakapro/admin/internal/dashboard"
	"github.com/chabakapro/admin/internal/middleware"
	"github.com/chabakapro/admin/internal/model"
)

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	gate := &mockGate{
		authenticateFn: func(ctx context.Context, candidate string) (*model.AdminSession, error) {
			if candidate != "chabaka2024" {
				t.Errorf("candidate = %q", candidate)
			}
			return &model.AdminSession{ID: "new-sess", Authenticated: true, IssuedAt: time.Now()}, nil
		},
	}
	var opened dashboard.Viewer
	dash := &mockDashboard{
		openFn: func(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview {
			opened = viewer
			return &dashboard.Overview{Stats: dashboard.Stats{TotalContacts: 3}}
		},
	}
	recorder := &mockLoginRecorder{}
	h := NewAuthHandler(gate, plainCookies{}, dash, fixedResolver{}, recorder, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"chabaka2024"}`))
	req.Host = "localhost:4000"
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	if c := findCookie(w.Result(), "session"); c == nil || c.Value != "new-sess" {
		t.Errorf("session cookie = %v, want new-sess", c)
	}
	if opened.SessionID != "new-sess" || opened.BackendURL != "http://localhost:4000/backend" {
		t.Errorf("opened viewer = %+v", opened)
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
		Dashboard     struct {
			Stats dashboard.Stats `json:"stats"`
		} `json:"dashboard"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Authenticated || body.Dashboard.Stats.TotalContacts != 3 {
		t.Errorf("body = %+v", body)
	}
	if len(recorder.results) != 1 || !recorder.results[0] {
		t.Errorf("login results = %v, want [true]", recorder.results)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	dash := &mockDashboard{
		openFn: func(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview {
			t.Fatal("パスワード不一致ではダッシュボードを開かない")
			return nil
		},
	}
	recorder := &mockLoginRecorder{}
	h := NewAuthHandler(&mockGate{}, plainCookies{}, dash, fixedResolver{}, recorder, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"nope"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidPassword {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidPassword)
	}
	if findCookie(w.Result(), "session") != nil {
		t.Error("失敗時にセッションCookieを発行してはならない")
	}
	if len(recorder.results) != 1 || recorder.results[0] {
		t.Errorf("login results = %v, want [false]", recorder.results)
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(&mockGate{}, plainCookies{}, &mockDashboard{}, fixedResolver{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{password`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_CookieWriteFailureDiscardsSession(t *testing.T) {
	var loggedOut string
	gate := &mockGate{
		authenticateFn: func(ctx context.Context, candidate string) (*model.AdminSession, error) {
			return &model.AdminSession{ID: "orphan", Authenticated: true}, nil
		},
		logoutFn: func(ctx context.Context, id string) error {
			loggedOut = id
			return nil
		},
	}
	h := NewAuthHandler(gate, plainCookies{writeErr: errors.New("encode failed")}, &mockDashboard{}, fixedResolver{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"x"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if loggedOut != "orphan" {
		t.Errorf("logged out = %q, want orphan", loggedOut)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var loggedOut, ended string
	gate := &mockGate{
		logoutFn: func(ctx context.Context, id string) error {
			loggedOut = id
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(gate, plainCookies{}, &mockDashboard{}, fixedResolver{}, nil, func(id string) { ended = id })

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "sess-ok"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if loggedOut != "sess-ok" || ended != "sess-ok" {
		t.Errorf("loggedOut = %q, ended = %q", loggedOut, ended)
	}
	c := findCookie(w.Result(), "session")
	if c == nil || c.MaxAge >= 0 {
		t.Error("ログアウト失敗時もCookieはクリアされるべき")
	}
}

func TestAuthHandler_Session(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		want      bool
		wantEnded bool
	}{
		{"valid", "sess-ok", true, false},
		{"expired", "sess-old", false, true},
		{"no cookie", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ended := false
			h := NewAuthHandler(&mockGate{}, plainCookies{}, &mockDashboard{}, fixedResolver{}, nil, func(string) { ended = true })

			req := httptest.NewRequest(http.MethodGet, "/admin/session", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			h.Session(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var body sessionResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Authenticated != tt.want {
				t.Errorf("authenticated = %v, want %v", body.Authenticated, tt.want)
			}
			if ended != tt.wantEnded {
				t.Errorf("ended = %v, want %v", ended, tt.wantEnded)
			}
		})
	}
}
