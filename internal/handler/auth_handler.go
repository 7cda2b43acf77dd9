// Package handler は管理APIのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chabakapro/admin/internal/dashboard"
	"github.com/chabakapro/admin/internal/model"
)

// GateService は認証ハンドラーが必要とするゲートのインターフェース。auth.Gateが実装する。
type GateService interface {
	Authenticate(ctx context.Context, candidate string) (*model.AdminSession, error)
	IsSessionValid(ctx context.Context, id string) bool
	Logout(ctx context.Context, id string) error
}

// SessionCookies は署名付きセッションCookieの読み書きのインターフェース。
// auth.CookieCodecが実装する。
type SessionCookies interface {
	Write(w http.ResponseWriter, sessionID string) error
	Read(r *http.Request) (string, error)
	Clear(w http.ResponseWriter)
}

// LoginRecorder はログイン試行の結果を記録する。metrics.Collectorが実装する。
type LoginRecorder interface {
	RecordLogin(success bool)
}

// AuthHandler はログイン・ログアウト・セッション確認のHTTPハンドラー。
type AuthHandler struct {
	gate      GateService
	cookies   SessionCookies
	dashboard DashboardService
	resolver  BaseURLResolver
	recorder  LoginRecorder
	endFn     func(sessionID string)
}

// NewAuthHandler はAuthHandlerを生成する。
// onSessionEndはログアウト時にセッションに紐づくメモリ上の状態を破棄するために呼ばれる。
// recorderとonSessionEndはnilでもよい。
func NewAuthHandler(
	gate GateService,
	cookies SessionCookies,
	dash DashboardService,
	resolver BaseURLResolver,
	recorder LoginRecorder,
	onSessionEnd func(sessionID string),
) *AuthHandler {
	return &AuthHandler{
		gate:      gate,
		cookies:   cookies,
		dashboard: dash,
		resolver:  resolver,
		recorder:  recorder,
		endFn:     onSessionEnd,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Authenticated bool              `json:"authenticated"`
	Dashboard     *overviewResponse `json:"dashboard"`
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Login はパスワードを照合し、成功時はセッションCookieを発行して全リソースを読み込む。
// POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	session, err := h.gate.Authenticate(r.Context(), req.Password)
	h.recordLogin(err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.cookies.Write(w, session.ID); err != nil {
		slog.Error("failed to write session cookie", slog.String("error", err.Error()))
		// Cookieを返せないセッションは使われないので破棄する
		_ = h.gate.Logout(r.Context(), session.ID)
		handleServiceError(w, err)
		return
	}

	viewer := dashboard.Viewer{
		SessionID:  session.ID,
		BackendURL: h.resolver.Resolve(requestScheme(r), r.Host),
	}
	overview := h.dashboard.Open(r.Context(), viewer)

	writeJSON(w, http.StatusOK, loginResponse{
		Authenticated: true,
		Dashboard:     newOverviewResponse(overview),
	})
}

// Logout はセッションを破棄してCookieを削除する。
// POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := h.cookies.Read(r); err == nil {
		if logoutErr := h.gate.Logout(r.Context(), sessionID); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// 失敗してもCookieはクリアする
		}
		if h.endFn != nil {
			h.endFn(sessionID)
		}
	}

	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session は現在のCookieが有効なセッションを指しているかを返す。
// 画面の初期表示でログイン画面とダッシュボードのどちらを出すかの判定に使う。
// GET /admin/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if sessionID, err := h.cookies.Read(r); err == nil {
		authenticated = h.gate.IsSessionValid(r.Context(), sessionID)
		if !authenticated && h.endFn != nil {
			h.endFn(sessionID)
		}
	}
	if !authenticated {
		h.cookies.Clear(w)
	}
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: authenticated})
}

func (h *AuthHandler) recordLogin(success bool) {
	if h.recorder != nil {
		h.recorder.RecordLogin(success)
	}
}
