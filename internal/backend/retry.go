package backend

import (
	"fmt"
	"time"
)

// CallResult はHTTPステータスコードに基づくバックエンド呼び出し結果の分類。
type CallResult int

const (
	// CallResultOK は成功（2xx）。
	CallResultOK CallResult = iota
	// CallResultRetry は再試行で回復しうる失敗（429/5xx）。
	CallResultRetry
	// CallResultFail は再試行しても回復しない失敗（その他の4xxなど）。
	CallResultFail
)

const (
	// defaultInitialBackoff は読み取り再試行の初回遅延。
	defaultInitialBackoff = 200 * time.Millisecond
	// maxBackoff は読み取り再試行の最大遅延。
	maxBackoff = 2 * time.Second
)

// StatusError はバックエンドが2xx以外を返したことを表す。
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// ClassifyHTTPStatus はHTTPステータスコードを呼び出し結果に分類する。
func ClassifyHTTPStatus(statusCode int) CallResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return CallResultOK
	case statusCode == 429:
		return CallResultRetry
	case statusCode >= 500:
		return CallResultRetry
	default:
		return CallResultFail
	}
}

// CalculateBackoff は試行回数に基づいて指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxBackoffで頭打ちになる。
func CalculateBackoff(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	delay := initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
