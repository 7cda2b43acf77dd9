package model

import "time"

// ContactStatus はお問い合わせメッセージの処理状態。
type ContactStatus string

const (
	StatusPending   ContactStatus = "pending"
	StatusProcessed ContactStatus = "processed"
	StatusClosed    ContactStatus = "closed"
)

// Valid は定義済みの状態かを返す。
func (s ContactStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusClosed:
		return true
	}
	return false
}

// ContactMessage は公開サイトのお問い合わせフォームから送信されたメッセージ。
type ContactMessage struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Subject   string        `json:"subject,omitempty"`
	Message   string        `json:"message"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// StatusValue はフィルタ用の状態文字列を返す。
func (c ContactMessage) StatusValue() string { return string(c.Status) }

// QuoteRequest は見積もり依頼（devis）。
// ClientTypeは particulier / entreprise、Urgencyは urgent / normal / その他。
type QuoteRequest struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	ClientType  string        `json:"clientType"`
	Service     string        `json:"service"`
	Budget      string        `json:"budget,omitempty"`
	Urgency     string        `json:"urgency,omitempty"`
	Message     string        `json:"message,omitempty"`
	Description string        `json:"description,omitempty"`
	Status      ContactStatus `json:"status,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// StatusValue はフィルタ用の状態文字列を返す。
func (q QuoteRequest) StatusValue() string { return string(q.Status) }

// Body はMessageが空の場合にDescriptionを返す。
func (q QuoteRequest) Body() string {
	if q.Message != "" {
		return q.Message
	}
	return q.Description
}

// BlogPost はブログ記事。管理画面では参照のみ。
type BlogPost struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug,omitempty"`
	Excerpt   string    `json:"excerpt"`
	Category  string    `json:"category"`
	Views     int       `json:"views"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusValue はブログ記事には状態フィールドがないため空文字を返す。
func (b BlogPost) StatusValue() string { return "" }

// PortfolioCase はポートフォリオ事例。管理画面では参照のみ。
type PortfolioCase struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Client       string    `json:"client"`
	Category     string    `json:"category"`
	Investment   *float64  `json:"investment,omitempty"`
	Technologies []string  `json:"technologies"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StatusValue はポートフォリオ事例には状態フィールドがないため空文字を返す。
func (p PortfolioCase) StatusValue() string { return "" }

const (
	TestimonialPublished   = "published"
	TestimonialUnpublished = "unpublished"
)

// Testimonial はお客様の声。公開状態のみ管理画面から変更できる。
type Testimonial struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Location  string    `json:"location,omitempty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Published bool      `json:"published"`
	Verified  bool      `json:"verified"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusValue は公開状態を published / unpublished で返す。
func (t Testimonial) StatusValue() string {
	if t.Published {
		return TestimonialPublished
	}
	return TestimonialUnpublished
}
