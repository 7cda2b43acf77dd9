// Package security は管理画面のセキュリティ機能を提供する。
//
// TextSanitizer は公開フォームから届いた自由入力テキストからHTMLを取り除く。
// SSRFガードはバックエンドのベースURLと、そこへ接続するHTTPクライアントを検証する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由入力テキストをプレーンテキストに整形する。
// お問い合わせ本文や見積もり依頼の説明欄など、訪問者が入力した値に使う。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを除去するTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、エスケープされた文字実体を元に戻したテキストを返す。
// 画面側はテキストとして描画するため、二重エスケープを避ける。
// 空文字列の入力には空文字列を返す。
func (s *TextSanitizer) Sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}
