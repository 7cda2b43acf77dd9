package dashboard

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StatusAll は状態フィルタを無効にする値。
const StatusAll = "all"

// Statused はフィルタ対象の要素が満たすインターフェース。
// 状態を持たない要素は空文字を返す。
type Statused interface {
	StatusValue() string
}

// Filter は検索語と状態で要素を絞り込む。
//   - searchが空なら検索条件は常に真。それ以外は要素のJSON表現を小文字化し、
//     小文字化した検索語を部分文字列として含むものを残す。
//   - statusが "all" または空なら状態条件は常に真。それ以外は完全一致。
//
// 元の並び順を保持し、結果は常に非nilのスライス。
func Filter[T Statused](items []T, search, status string) []T {
	needle := strings.ToLower(search)
	out := make([]T, 0, len(items))

	for _, item := range items {
		if !matchesStatus(item, status) {
			continue
		}
		if needle != "" && !matchesSearch(item, needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesStatus(item Statused, status string) bool {
	if status == "" || status == StatusAll {
		return true
	}
	return item.StatusValue() == status
}

func matchesSearch(item any, needle string) bool {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(buf.String()), needle)
}

// Preview は先頭n件を返す。nが要素数以上の場合は全件を返す。
func Preview[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}
