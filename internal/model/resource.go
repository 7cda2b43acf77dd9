// Package model はドメインモデルを定義する。
package model

import "time"

// Resource はバックエンドが保持するコレクションの種別を表す。
type Resource string

const (
	// ResourceContacts はお問い合わせメッセージ。
	ResourceContacts Resource = "contacts"
	// ResourceQuotes は見積もり依頼（devis）。
	ResourceQuotes Resource = "quotes"
	// ResourceBlogPosts はブログ記事。
	ResourceBlogPosts Resource = "blog"
	// ResourcePortfolio はポートフォリオ事例。
	ResourcePortfolio Resource = "portfolio"
	// ResourceTestimonials はお客様の声。
	ResourceTestimonials Resource = "testimonials"
)

// AllResources はフェッチ対象の5種類のリソースを表示順に並べたもの。
var AllResources = []Resource{
	ResourceContacts,
	ResourceQuotes,
	ResourceBlogPosts,
	ResourcePortfolio,
	ResourceTestimonials,
}

// ParseResource は文字列をResourceに変換する。
// 未知の値の場合はfalseを返す。
func ParseResource(s string) (Resource, bool) {
	for _, r := range AllResources {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Snapshot は5種類のコレクションを最後のフェッチ時点の状態で保持する。
// 取得に失敗したリソースは空のコレクションとなり、Failuresに理由が記録される。
type Snapshot struct {
	Contacts       []ContactMessage
	Quotes         []QuoteRequest
	BlogPosts      []BlogPost
	PortfolioCases []PortfolioCase
	Testimonials   []Testimonial

	// Failures は取得に失敗したリソースとそのエラーメッセージ。
	Failures  map[Resource]string
	FetchedAt time.Time
}

// NewEmptySnapshot は全コレクションが空のSnapshotを生成する。
func NewEmptySnapshot() *Snapshot {
	return &Snapshot{
		Contacts:       []ContactMessage{},
		Quotes:         []QuoteRequest{},
		BlogPosts:      []BlogPost{},
		PortfolioCases: []PortfolioCase{},
		Testimonials:   []Testimonial{},
		Failures:       map[Resource]string{},
	}
}

// Failed は取得に失敗したリソースをAllResourcesの順で返す。
func (s *Snapshot) Failed() []Resource {
	failed := []Resource{}
	for _, r := range AllResources {
		if _, ok := s.Failures[r]; ok {
			failed = append(failed, r)
		}
	}
	return failed
}

// AllFailed は5種類すべての取得に失敗したかを返す。
func (s *Snapshot) AllFailed() bool {
	return len(s.Failed()) == len(AllResources)
}
