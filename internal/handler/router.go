package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chabakapro/admin/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証
	Gate    GateService
	Cookies SessionCookies

	// ダッシュボード
	Dashboard DashboardService
	Resolver  BaseURLResolver

	// ミドルウェア依存
	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string
	CSRFConfig         middleware.CSRFConfig
	Logger             *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	LoginRecorder  LoginRecorder
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
//	ログイン・ログアウト: CSRF
//	認証が必要なルートのみ: Session → RateLimit → CSRF
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	// セッション終了時にメモリ上のビューとリミッターを破棄する
	endSession := func(sessionID string) {
		deps.Dashboard.Close(sessionID)
		if deps.RateLimiter != nil {
			deps.RateLimiter.Forget(sessionID)
		}
	}

	authHandler := NewAuthHandler(deps.Gate, deps.Cookies, deps.Dashboard, deps.Resolver, deps.LoginRecorder, endSession)
	dashHandler := NewDashboardHandler(deps.Dashboard, deps.Resolver)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	r.Route("/admin", func(r chi.Router) {
		// UIは先に /admin/csrf-token でトークンを取得する
		r.With(csrf).Post("/login", authHandler.Login)
		r.With(csrf).Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// --- 認証が必要なルート ---
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.Gate, deps.Cookies, endSession))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Use(csrf)

			r.Get("/dashboard", dashHandler.Dashboard)
			r.Post("/refresh", dashHandler.Refresh)
			r.Get("/{resource}", dashHandler.List)
			r.Patch("/{resource}/{id}", dashHandler.UpdateStatus)
			r.Delete("/{resource}/{id}", dashHandler.Delete)
			r.Post("/{resource}/{id}/toggle", dashHandler.ToggleTestimonial)
		})
	})

	return r
}
