package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chabakapro/admin/internal/model"
)

// ResourceClient はFetcherが利用するバックエンドAPIのインターフェース。
type ResourceClient interface {
	ListContacts(ctx context.Context) ([]model.ContactMessage, error)
	ListQuotes(ctx context.Context) ([]model.QuoteRequest, error)
	ListBlogPosts(ctx context.Context) ([]model.BlogPost, error)
	ListPortfolioCases(ctx context.Context) ([]model.PortfolioCase, error)
	ListTestimonials(ctx context.Context) ([]model.Testimonial, error)
	UpdateContactStatus(ctx context.Context, id string, status model.ContactStatus) error
	SetTestimonialPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, resource model.Resource, id string) error
}

// Fetcher は5種類のリソースを並列に取得し、書き込み操作を検証してから送信する。
// あるリソースの失敗は他のリソースの取得に影響しない。
type Fetcher struct {
	client         ResourceClient
	metrics        MetricsRecorder
	logger         *slog.Logger
	maxConcurrency int
	timeout        time.Duration
	nowFunc        func() time.Time
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// timeoutは各バックエンド呼び出しに適用される（0以下で無制限）。
func NewFetcher(
	client ResourceClient,
	metrics MetricsRecorder,
	logger *slog.Logger,
	maxConcurrency int,
	timeout time.Duration,
) *Fetcher {
	if maxConcurrency <= 0 {
		maxConcurrency = len(model.AllResources)
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Fetcher{
		client:         client,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
		nowFunc:        time.Now,
	}
}

// FetchAll は5種類のリソースを並列に取得し、全て完了してからSnapshotを返す。
// 失敗したリソースは空のコレクションに置き換え、Failuresに理由を記録する。
// FetchAll自体はエラーを返さない。
func (f *Fetcher) FetchAll(ctx context.Context) *model.Snapshot {
	snap := model.NewEmptySnapshot()

	var mu sync.Mutex
	fail := func(resource model.Resource, err error) {
		f.logger.Error("リソースの取得に失敗しました",
			slog.String("resource", string(resource)),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(string(resource))
		mu.Lock()
		snap.Failures[resource] = err.Error()
		mu.Unlock()
	}
	succeed := func(resource model.Resource) {
		f.metrics.RecordFetchSuccess(string(resource))
	}

	// 各goroutineはnilを返すため、1つの失敗で他がキャンセルされることはない
	var g errgroup.Group
	g.SetLimit(f.maxConcurrency)

	g.Go(func() error {
		items, err := callWithTimeout(ctx, f.timeout, f.client.ListContacts)
		if err != nil {
			fail(model.ResourceContacts, err)
			return nil
		}
		succeed(model.ResourceContacts)
		mu.Lock()
		snap.Contacts = items
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := callWithTimeout(ctx, f.timeout, f.client.ListQuotes)
		if err != nil {
			fail(model.ResourceQuotes, err)
			return nil
		}
		succeed(model.ResourceQuotes)
		mu.Lock()
		snap.Quotes = items
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := callWithTimeout(ctx, f.timeout, f.client.ListBlogPosts)
		if err != nil {
			fail(model.ResourceBlogPosts, err)
			return nil
		}
		succeed(model.ResourceBlogPosts)
		mu.Lock()
		snap.BlogPosts = items
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := callWithTimeout(ctx, f.timeout, f.client.ListPortfolioCases)
		if err != nil {
			fail(model.ResourcePortfolio, err)
			return nil
		}
		succeed(model.ResourcePortfolio)
		mu.Lock()
		snap.PortfolioCases = items
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := callWithTimeout(ctx, f.timeout, f.client.ListTestimonials)
		if err != nil {
			fail(model.ResourceTestimonials, err)
			return nil
		}
		succeed(model.ResourceTestimonials)
		mu.Lock()
		snap.Testimonials = items
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	snap.FetchedAt = f.nowFunc()

	if snap.AllFailed() {
		f.logger.Warn("全リソースの取得に失敗しました")
	} else {
		f.logger.Info("リソースの取得が完了しました",
			slog.Int("contacts", len(snap.Contacts)),
			slog.Int("quotes", len(snap.Quotes)),
			slog.Int("blog_posts", len(snap.BlogPosts)),
			slog.Int("portfolio_cases", len(snap.PortfolioCases)),
			slog.Int("testimonials", len(snap.Testimonials)),
			slog.Int("failures", len(snap.Failures)),
		)
	}

	return snap
}

// UpdateStatus はリソース要素の状態を更新する。
// 現在はお問い合わせメッセージのみ対応している。
func (f *Fetcher) UpdateStatus(ctx context.Context, resource model.Resource, id string, status model.ContactStatus) error {
	if resource != model.ResourceContacts {
		return model.NewUnsupportedOperationError("update_status", resource)
	}
	if !status.Valid() {
		return model.NewInvalidStatusError(string(status))
	}
	if id == "" {
		return model.NewInvalidRequestError()
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	err := f.client.UpdateContactStatus(ctx, id, status)
	f.metrics.RecordWrite(string(model.AuditUpdateStatus), err == nil)
	return err
}

// Delete はリソース要素を削除する。
// お問い合わせ、見積もり依頼、お客様の声のみ対応している。
func (f *Fetcher) Delete(ctx context.Context, resource model.Resource, id string) error {
	switch resource {
	case model.ResourceContacts, model.ResourceQuotes, model.ResourceTestimonials:
	default:
		return model.NewUnsupportedOperationError("delete", resource)
	}
	if id == "" {
		return model.NewInvalidRequestError()
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	err := f.client.Delete(ctx, resource, id)
	f.metrics.RecordWrite(string(model.AuditDelete), err == nil)
	return err
}

// ToggleTestimonialPublished はお客様の声の公開状態を反転させる。
// currentは呼び出し側が表示している現在の状態で、!currentを送信する。
func (f *Fetcher) ToggleTestimonialPublished(ctx context.Context, id string, current bool) error {
	if id == "" {
		return model.NewInvalidRequestError()
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	err := f.client.SetTestimonialPublished(ctx, id, !current)
	f.metrics.RecordWrite(string(model.AuditTogglePublished), err == nil)
	return err
}

func (f *Fetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) ([]T, error)) ([]T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	items, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
