package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chabakapro/admin/internal/model"
)

// previewSize はダッシュボードに表示する最新のお問い合わせ・見積もり依頼の件数。
const previewSize = 5

// Backend はServiceが利用するリソース取得・書き込みのインターフェース。
// backend.Fetcherが実装する。
type Backend interface {
	FetchAll(ctx context.Context) *model.Snapshot
	UpdateStatus(ctx context.Context, resource model.Resource, id string, status model.ContactStatus) error
	Delete(ctx context.Context, resource model.Resource, id string) error
	ToggleTestimonialPublished(ctx context.Context, id string, current bool) error
}

// BackendFactory はベースURLに対応するBackendを返す。
type BackendFactory func(baseURL string) Backend

// AuditRecorder は書き込み操作の監査記録のインターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
}

// TextSanitizer は自由記述テキストからHTMLを除去するインターフェース。
type TextSanitizer interface {
	Sanitize(text string) string
}

// Viewer はスナップショットの所有者（ログインセッション）と、その呼び出し先バックエンドを表す。
type Viewer struct {
	SessionID  string
	BackendURL string
}

// Overview はダッシュボードタブの表示内容。
type Overview struct {
	Stats          Stats                  `json:"stats"`
	RecentContacts []model.ContactMessage `json:"recentContacts"`
	RecentQuotes   []model.QuoteRequest   `json:"recentQuotes"`
	Failures       []model.Resource       `json:"failures"`
	AllFailed      bool                   `json:"-"`
	FetchedAt      time.Time              `json:"fetchedAt"`
}

// Listing はリソースタブの表示内容。Itemsはリソースの要素型のスライス。
type Listing struct {
	Resource model.Resource `json:"resource"`
	View     ViewState      `json:"view"`
	Items    any            `json:"items"`
	Count    int            `json:"count"`
	Total    int            `json:"total"`
	Failed   bool           `json:"failed"`
}

// view はセッション1つ分のスナップショット。
// muで同一セッションのリクエストを直列化する。
type view struct {
	mu       sync.Mutex
	backend  Backend
	baseURL  string
	snapshot *model.Snapshot
	loaded   bool
	lastUsed time.Time // Service.muで保護する
}

// Service は管理画面のセッションごとのスナップショットを管理するサービス層。
// 書き込みが成功するたびに全リソースを再取得し、ローカルでの部分更新は行わない。
type Service struct {
	newBackend BackendFactory
	audit      AuditRecorder
	sanitizer  TextSanitizer
	logger     *slog.Logger
	nowFunc    func() time.Time

	mu    sync.Mutex
	views map[string]*view
}

// NewService はServiceの新しいインスタンスを生成する。
// auditとsanitizerはnilでもよい。
func NewService(
	newBackend BackendFactory,
	audit AuditRecorder,
	sanitizer TextSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		newBackend: newBackend,
		audit:      audit,
		sanitizer:  sanitizer,
		logger:     logger,
		nowFunc:    time.Now,
		views:      make(map[string]*view),
	}
}

// Open はセッションのビューを空の状態で作り直し、全リソースを読み込む。
// ログイン直後に呼び出す。
func (s *Service) Open(ctx context.Context, viewer Viewer) *Overview {
	v := &view{
		backend:  s.newBackend(viewer.BackendURL),
		baseURL:  viewer.BackendURL,
		snapshot: model.NewEmptySnapshot(),
	}

	s.mu.Lock()
	v.lastUsed = s.nowFunc()
	s.views[viewer.SessionID] = v
	s.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	s.load(ctx, v)
	return s.overview(v.snapshot)
}

// Dashboard はダッシュボードタブの内容を返す。
// ビューが未読み込みの場合は先に全リソースを取得する。
func (s *Service) Dashboard(ctx context.Context, viewer Viewer) *Overview {
	v := s.viewFor(viewer)
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.loaded {
		s.load(ctx, v)
	}
	return s.overview(v.snapshot)
}

// Refresh は全リソースを再取得してダッシュボードの内容を返す。
func (s *Service) Refresh(ctx context.Context, viewer Viewer) *Overview {
	v := s.viewFor(viewer)
	v.mu.Lock()
	defer v.mu.Unlock()

	s.load(ctx, v)
	return s.overview(v.snapshot)
}

// List は表示状態に従ってフィルタしたリソースの一覧を返す。
// 検索はHTML除去後のテキストに対して行う。
// タブがリソースでない場合はINVALID_RESOURCEエラーを返す。
func (s *Service) List(ctx context.Context, viewer Viewer, state ViewState) (*Listing, error) {
	resource, ok := state.Resource()
	if !ok {
		return nil, model.NewInvalidResourceError(state.Tab)
	}

	v := s.viewFor(viewer)
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.loaded {
		s.load(ctx, v)
	}

	snap := v.snapshot
	listing := &Listing{Resource: resource, View: state}
	_, listing.Failed = snap.Failures[resource]

	switch resource {
	case model.ResourceContacts:
		items := Filter(s.sanitizeContacts(snap.Contacts), state.Search, state.Status)
		listing.Items, listing.Count, listing.Total = items, len(items), len(snap.Contacts)
	case model.ResourceQuotes:
		items := Filter(s.sanitizeQuotes(snap.Quotes), state.Search, state.Status)
		listing.Items, listing.Count, listing.Total = items, len(items), len(snap.Quotes)
	case model.ResourceBlogPosts:
		items := Filter(s.sanitizeBlogPosts(snap.BlogPosts), state.Search, state.Status)
		listing.Items, listing.Count, listing.Total = items, len(items), len(snap.BlogPosts)
	case model.ResourcePortfolio:
		items := Filter(s.sanitizePortfolio(snap.PortfolioCases), state.Search, state.Status)
		listing.Items, listing.Count, listing.Total = items, len(items), len(snap.PortfolioCases)
	case model.ResourceTestimonials:
		items := Filter(s.sanitizeTestimonials(snap.Testimonials), state.Search, state.Status)
		listing.Items, listing.Count, listing.Total = items, len(items), len(snap.Testimonials)
	}

	return listing, nil
}

// UpdateStatus はお問い合わせの状態を更新し、成功時は全リソースを再取得する。
// 失敗時はスナップショットを変更せずAPIErrorを返す。
func (s *Service) UpdateStatus(ctx context.Context, viewer Viewer, resource model.Resource, id string, status model.ContactStatus) (*Overview, error) {
	return s.mutate(ctx, viewer, model.AuditUpdateStatus, resource, id, model.NewUpdateFailedError,
		func(b Backend) error {
			return b.UpdateStatus(ctx, resource, id, status)
		})
}

// Delete は要素を削除し、成功時は全リソースを再取得する。
func (s *Service) Delete(ctx context.Context, viewer Viewer, resource model.Resource, id string) (*Overview, error) {
	return s.mutate(ctx, viewer, model.AuditDelete, resource, id, model.NewDeleteFailedError,
		func(b Backend) error {
			return b.Delete(ctx, resource, id)
		})
}

// ToggleTestimonial はお客様の声の公開状態を反転し、成功時は全リソースを再取得する。
// currentは画面に表示されている現在の公開状態。
func (s *Service) ToggleTestimonial(ctx context.Context, viewer Viewer, id string, current bool) (*Overview, error) {
	return s.mutate(ctx, viewer, model.AuditTogglePublished, model.ResourceTestimonials, id, model.NewUpdateFailedError,
		func(b Backend) error {
			return b.ToggleTestimonialPublished(ctx, id, current)
		})
}

// Close はセッションのビューを破棄する。ログアウト時とセッション失効時に呼び出す。
func (s *Service) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, sessionID)
}

// CloseIdle はbefore以降に使われていないビューを破棄し、破棄した数を返す。
// 期限切れのまま再訪されないセッションのスナップショットを解放する。
func (s *Service) CloseIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for id, v := range s.views {
		if v.lastUsed.Before(before) {
			delete(s.views, id)
			closed++
		}
	}
	return closed
}

// OpenViews は保持しているビューの数を返す。
func (s *Service) OpenViews() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *Service) mutate(
	ctx context.Context,
	viewer Viewer,
	action model.AuditAction,
	resource model.Resource,
	id string,
	failure func() *model.APIError,
	write func(Backend) error,
) (*Overview, error) {
	v := s.viewFor(viewer)
	v.mu.Lock()
	defer v.mu.Unlock()

	err := write(v.backend)
	s.record(ctx, viewer.SessionID, action, resource, id, err)

	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		s.logger.Error("バックエンドへの書き込みに失敗しました",
			slog.String("action", string(action)),
			slog.String("resource", string(resource)),
			slog.String("target_id", id),
			slog.String("error", err.Error()),
		)
		return nil, failure()
	}

	s.load(ctx, v)
	return s.overview(v.snapshot), nil
}

func (s *Service) record(ctx context.Context, sessionID string, action model.AuditAction, resource model.Resource, id string, writeErr error) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditEntry{
		SessionID: sessionID,
		Action:    action,
		Resource:  resource,
		TargetID:  id,
		Success:   writeErr == nil,
		CreatedAt: s.nowFunc(),
	}
	if writeErr != nil {
		entry.ErrorMessage = writeErr.Error()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("監査ログの記録に失敗しました",
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}

// viewFor はセッションのビューを返す。存在しない場合やバックエンドが変わった場合は作り直す。
func (s *Service) viewFor(viewer Viewer) *view {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	v, ok := s.views[viewer.SessionID]
	if ok && v.baseURL == viewer.BackendURL {
		v.lastUsed = now
		return v
	}
	v = &view{
		backend:  s.newBackend(viewer.BackendURL),
		baseURL:  viewer.BackendURL,
		snapshot: model.NewEmptySnapshot(),
		lastUsed: now,
	}
	s.views[viewer.SessionID] = v
	return v
}

// load はv.muを保持した状態で呼び出す。
func (s *Service) load(ctx context.Context, v *view) {
	snap := v.backend.FetchAll(ctx)
	if snap == nil {
		snap = model.NewEmptySnapshot()
	}
	v.snapshot = snap
	v.loaded = true
}

func (s *Service) overview(snap *model.Snapshot) *Overview {
	return &Overview{
		Stats:          Derive(snap, s.nowFunc()),
		RecentContacts: s.sanitizeContacts(Preview(snap.Contacts, previewSize)),
		RecentQuotes:   s.sanitizeQuotes(Preview(snap.Quotes, previewSize)),
		Failures:       snap.Failed(),
		AllFailed:      snap.AllFailed(),
		FetchedAt:      snap.FetchedAt,
	}
}

func (s *Service) clean(text string) string {
	if s.sanitizer == nil || text == "" {
		return text
	}
	return s.sanitizer.Sanitize(text)
}

// 以下のsanitize系は入力スライスをコピーしてから書き換える。

func (s *Service) sanitizeContacts(in []model.ContactMessage) []model.ContactMessage {
	out := make([]model.ContactMessage, len(in))
	for i, c := range in {
		c.Name = s.clean(c.Name)
		c.Subject = s.clean(c.Subject)
		c.Message = s.clean(c.Message)
		out[i] = c
	}
	return out
}

func (s *Service) sanitizeQuotes(in []model.QuoteRequest) []model.QuoteRequest {
	out := make([]model.QuoteRequest, len(in))
	for i, q := range in {
		q.Name = s.clean(q.Name)
		q.Service = s.clean(q.Service)
		q.Message = s.clean(q.Message)
		q.Description = s.clean(q.Description)
		out[i] = q
	}
	return out
}

func (s *Service) sanitizeBlogPosts(in []model.BlogPost) []model.BlogPost {
	out := make([]model.BlogPost, len(in))
	for i, b := range in {
		b.Title = s.clean(b.Title)
		b.Excerpt = s.clean(b.Excerpt)
		out[i] = b
	}
	return out
}

func (s *Service) sanitizePortfolio(in []model.PortfolioCase) []model.PortfolioCase {
	out := make([]model.PortfolioCase, len(in))
	for i, p := range in {
		p.Title = s.clean(p.Title)
		p.Client = s.clean(p.Client)
		out[i] = p
	}
	return out
}

func (s *Service) sanitizeTestimonials(in []model.Testimonial) []model.Testimonial {
	out := make([]model.Testimonial, len(in))
	for i, t := range in {
		t.Name = s.clean(t.Name)
		t.Company = s.clean(t.Company)
		t.Text = s.clean(t.Text)
		out[i] = t
	}
	return out
}
