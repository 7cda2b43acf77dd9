package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chabakapro/admin/internal/dashboard"
	"github.com/chabakapro/admin/internal/middleware"
	"github.com/chabakapro/admin/internal/model"
)

// DashboardService はダッシュボードハンドラーが必要とするサービスインターフェース。
// dashboard.Serviceが実装する。
type DashboardService interface {
	Open(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	Dashboard(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	Refresh(ctx context.Context, viewer dashboard.Viewer) *dashboard.Overview
	List(ctx context.Context, viewer dashboard.Viewer, state dashboard.ViewState) (*dashboard.Listing, error)
	UpdateStatus(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string, status model.ContactStatus) (*dashboard.Overview, error)
	Delete(ctx context.Context, viewer dashboard.Viewer, resource model.Resource, id string) (*dashboard.Overview, error)
	ToggleTestimonial(ctx context.Context, viewer dashboard.Viewer, id string, current bool) (*dashboard.Overview, error)
	Close(sessionID string)
}

// BaseURLResolver はリクエストのスキームとホストからバックエンドのベースURLを決める。
// backend.Resolverが実装する。
type BaseURLResolver interface {
	Resolve(scheme, hostport string) string
}

// DashboardHandler はダッシュボードとリソース一覧・操作のHTTPハンドラー。
type DashboardHandler struct {
	service  DashboardService
	resolver BaseURLResolver
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardService, resolver BaseURLResolver) *DashboardHandler {
	return &DashboardHandler{service: service, resolver: resolver}
}

// overviewResponse はダッシュボードのレスポンス。
// 5種類すべての取得に失敗した場合のみnoticeを付与する。ステータスは200のまま。
type overviewResponse struct {
	*dashboard.Overview
	Notice *middleware.ErrorResponseBody `json:"notice,omitempty"`
}

func newOverviewResponse(ov *dashboard.Overview) *overviewResponse {
	resp := &overviewResponse{Overview: ov}
	if ov.AllFailed {
		notice := middleware.NewErrorResponseBody(model.NewBackendUnavailableError())
		resp.Notice = &notice
	}
	return resp
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type toggleRequest struct {
	Published *bool `json:"published"`
}

// Dashboard はダッシュボードタブの内容を返す。
// GET /admin/api/dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newOverviewResponse(h.service.Dashboard(r.Context(), viewer)))
}

// Refresh は全リソースを再取得する。
// POST /admin/api/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newOverviewResponse(h.service.Refresh(r.Context(), viewer)))
}

// List はリソースタブの一覧を返す。qは検索語、statusは状態フィルタ。
// GET /admin/api/{resource}?q=&status=
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	state := dashboard.NewViewState().
		SelectTab(chi.URLParam(r, "resource")).
		WithSearch(query.Get("q")).
		WithStatus(query.Get("status"))

	listing, err := h.service.List(r.Context(), viewer, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// UpdateStatus は状態を更新する。対応するのはcontactsのみ。
// PATCH /admin/api/{resource}/{id}
func (h *DashboardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	resource, ok := resourceParam(w, r)
	if !ok {
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	ov, err := h.service.UpdateStatus(r.Context(), viewer, resource, id, model.ContactStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOverviewResponse(ov))
}

// Delete は要素を削除する。対応するのはcontacts、quotes、testimonialsのみ。
// DELETE /admin/api/{resource}/{id}
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	resource, ok := resourceParam(w, r)
	if !ok {
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	ov, err := h.service.Delete(r.Context(), viewer, resource, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOverviewResponse(ov))
}

// ToggleTestimonial はお客様の声の公開状態を反転する。
// ボディのpublishedには画面に表示されている現在の状態を送る。
// POST /admin/api/testimonials/{id}/toggle
func (h *DashboardHandler) ToggleTestimonial(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	resource, ok := resourceParam(w, r)
	if !ok {
		return
	}
	if resource != model.ResourceTestimonials {
		handleServiceError(w, model.NewUnsupportedOperationError("toggle", resource))
		return
	}

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Published == nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	ov, err := h.service.ToggleTestimonial(r.Context(), viewer, id, *req.Published)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOverviewResponse(ov))
}

// viewer はリクエストからビューの所有者を組み立てる。
// セッションミドルウェアを通過していない場合は401を書き込んでfalseを返す。
func (h *DashboardHandler) viewer(w http.ResponseWriter, r *http.Request) (dashboard.Viewer, bool) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewSessionExpiredError())
		return dashboard.Viewer{}, false
	}
	return dashboard.Viewer{
		SessionID:  sessionID,
		BackendURL: h.resolver.Resolve(requestScheme(r), r.Host),
	}, true
}

// resourceParam はURLのresourceを解析する。未知の値なら400を書き込んでfalseを返す。
func resourceParam(w http.ResponseWriter, r *http.Request) (model.Resource, bool) {
	name := chi.URLParam(r, "resource")
	resource, ok := model.ParseResource(name)
	if !ok {
		handleServiceError(w, model.NewInvalidResourceError(name))
	}
	return resource, ok
}

// maxIDLength は監査ログのtarget_id列の長さに合わせたIDの上限。
const maxIDLength = 128

// idParam はURLのidを返す。空または長すぎる場合は400を書き込んでfalseを返す。
func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLength {
		handleServiceError(w, model.NewInvalidRequestError())
		return "", false
	}
	return id, true
}

// requestScheme はリクエストのスキームを返す。
// リバースプロキシ配下ではX-Forwarded-Protoを優先するが、http/https以外の値は無視する。
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first, _, _ := strings.Cut(proto, ",")
		switch scheme := strings.ToLower(strings.TrimSpace(first)); scheme {
		case "http", "https":
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
