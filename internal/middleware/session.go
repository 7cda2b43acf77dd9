// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chabakapro/admin/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
var sessionIDContextKey = contextKey("session_id")

// SessionValidator はセッションの有効性判定のインターフェース。auth.Gateが実装する。
type SessionValidator interface {
	IsSessionValid(ctx context.Context, id string) bool
}

// SessionCookieReader は署名付きCookieからセッションIDを読み取るインターフェース。
// auth.CookieCodecが実装する。
type SessionCookieReader interface {
	Read(r *http.Request) (string, error)
}

// NewSessionMiddleware はCookieのセッションIDを検証するミドルウェアを返す。
// 有効なセッションIDをリクエストコンテキストに注入する。
// 無効な場合は401 SESSION_EXPIREDを返し、onInvalidが指定されていれば呼び出す。
func NewSessionMiddleware(
	validator SessionValidator,
	cookies SessionCookieReader,
	onInvalid func(sessionID string),
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cookies.Read(r)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
				return
			}

			if !validator.IsSessionValid(r.Context(), sessionID) {
				slog.Info("session rejected", slog.String("session_id", sessionID))
				if onInvalid != nil {
					onInvalid(sessionID)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
				return
			}

			setLogSessionID(r.Context(), sessionID)
			ctx := ContextWithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithSessionID はコンテキストにセッションIDを注入する。
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
