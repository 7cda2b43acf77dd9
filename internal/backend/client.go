// Package backend はサイトのREST APIを呼び出すクライアントと、
// 5種類のリソースを並列に取得するフェッチャーを提供する。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chabakapro/admin/internal/model"
)

// resourcePaths はリソースとバックエンドのエンドポイントの対応。
var resourcePaths = map[model.Resource]string{
	model.ResourceContacts:     "/contact",
	model.ResourceQuotes:       "/devis",
	model.ResourceBlogPosts:    "/blog",
	model.ResourcePortfolio:    "/portfolio",
	model.ResourceTestimonials: "/testimonials",
}

// MetricsRecorder はバックエンド呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFetchSuccess(resource string)
	RecordFetchFailure(resource string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(method string, duration time.Duration)
	RecordWrite(action string, success bool)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	MaxBodySize    int64         // レスポンスボディの最大サイズ
	ReadRetries    int           // GETの再試行回数（書き込みは再試行しない）
	InitialBackoff time.Duration // 再試行の初回遅延
}

// Client はバックエンドREST APIのHTTPクライアント。
// ベースURLごとに不変で、WithBaseURLで別のベースURLを指すコピーを作る。
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     ClientConfig
	metrics    MetricsRecorder
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// metricsがnilの場合は記録を行わない。
func NewClient(
	httpClient *http.Client,
	baseURL string,
	config ClientConfig,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Client {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 5 * 1024 * 1024
	}
	if config.ReadRetries < 0 {
		config.ReadRetries = 0
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		config:     config,
		metrics:    metrics,
		logger:     logger,
	}
}

// WithBaseURL はベースURLのみを差し替えたClientを返す。
// HTTPクライアントとメトリクスは共有する。
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// BaseURL は呼び出し先のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// listEnvelope はコレクション取得APIのレスポンス形式 { data: [...] }。
type listEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// ListContacts はお問い合わせメッセージ一覧を取得する。
func (c *Client) ListContacts(ctx context.Context) ([]model.ContactMessage, error) {
	return list[model.ContactMessage](ctx, c, model.ResourceContacts)
}

// ListQuotes は見積もり依頼一覧を取得する。
func (c *Client) ListQuotes(ctx context.Context) ([]model.QuoteRequest, error) {
	return list[model.QuoteRequest](ctx, c, model.ResourceQuotes)
}

// ListBlogPosts はブログ記事一覧を取得する。
func (c *Client) ListBlogPosts(ctx context.Context) ([]model.BlogPost, error) {
	return list[model.BlogPost](ctx, c, model.ResourceBlogPosts)
}

// ListPortfolioCases はポートフォリオ事例一覧を取得する。
func (c *Client) ListPortfolioCases(ctx context.Context) ([]model.PortfolioCase, error) {
	return list[model.PortfolioCase](ctx, c, model.ResourcePortfolio)
}

// ListTestimonials はお客様の声一覧を取得する。
func (c *Client) ListTestimonials(ctx context.Context) ([]model.Testimonial, error) {
	return list[model.Testimonial](ctx, c, model.ResourceTestimonials)
}

// UpdateContactStatus はお問い合わせメッセージの状態を更新する。
// PATCH /contact/{id} {status}
func (c *Client) UpdateContactStatus(ctx context.Context, id string, status model.ContactStatus) error {
	return c.write(ctx, http.MethodPatch, itemPath(model.ResourceContacts, id), map[string]string{
		"status": string(status),
	})
}

// SetTestimonialPublished はお客様の声の公開状態を設定する。
// PATCH /testimonials/{id} {published}
func (c *Client) SetTestimonialPublished(ctx context.Context, id string, published bool) error {
	return c.write(ctx, http.MethodPatch, itemPath(model.ResourceTestimonials, id), map[string]bool{
		"published": published,
	})
}

// Delete は指定リソースの要素を削除する。
// DELETE /contact/{id}, /devis/{id}, /testimonials/{id}
func (c *Client) Delete(ctx context.Context, resource model.Resource, id string) error {
	return c.write(ctx, http.MethodDelete, itemPath(resource, id), nil)
}

// list はコレクションを取得してT型のスライスにデコードする。
// dataが欠落またはnullの場合は空スライスを返す。
func list[T any](ctx context.Context, c *Client, resource model.Resource) ([]T, error) {
	body, err := c.getWithRetry(ctx, resourcePaths[resource])
	if err != nil {
		return nil, err
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", resource, err)
	}

	items := []T{}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s items: %w", resource, err)
	}
	return items, nil
}

// getWithRetry はGETを実行し、429/5xx/通信エラーの場合のみ指数バックオフで再試行する。
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.ReadRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.config.InitialBackoff, attempt-1)
			c.logger.Warn("バックエンドへのGETを再試行します",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, status, err := c.do(ctx, http.MethodGet, path, nil)
		if err == nil {
			switch ClassifyHTTPStatus(status) {
			case CallResultOK:
				return body, nil
			case CallResultFail:
				return nil, &StatusError{Method: http.MethodGet, Path: path, StatusCode: status}
			}
			err = &StatusError{Method: http.MethodGet, Path: path, StatusCode: status}
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// write は書き込み系リクエストを1回だけ実行する。
func (c *Client) write(ctx context.Context, method, path string, payload any) error {
	_, status, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if ClassifyHTTPStatus(status) != CallResultOK {
		return &StatusError{Method: method, Path: path, StatusCode: status}
	}
	return nil
}

// do はHTTPリクエストを実行し、サイズ上限付きで読み込んだボディとステータスを返す。
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ChabakaPro-Admin/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	c.metrics.RecordRequestLatency(method, time.Since(start))
	if err != nil {
		c.logger.Error("バックエンドへのHTTPリクエストに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("backend %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("バックエンド呼び出しが完了しました",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return body, resp.StatusCode, nil
}

func itemPath(resource model.Resource, id string) string {
	return resourcePaths[resource] + "/" + url.PathEscape(id)
}

type nopMetrics struct{}

func (nopMetrics) RecordFetchSuccess(string)                  {}
func (nopMetrics) RecordFetchFailure(string)                  {}
func (nopMetrics) RecordHTTPStatus(int)                       {}
func (nopMetrics) RecordRequestLatency(string, time.Duration) {}
func (nopMetrics) RecordWrite(string, bool)                   {}
