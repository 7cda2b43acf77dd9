// Package dashboard は管理画面の集計・フィルタ・表示補助と、
// セッションごとのスナップショットを管理するサービスを提供する。
package dashboard

import (
	"time"

	"github.com/chabakapro/admin/internal/model"
)

// weekWindow は「直近1週間」の集計に使うローリングウィンドウ。
// カレンダー週には揃えない。
const weekWindow = 7 * 24 * time.Hour

// Stats はダッシュボードに表示する集計値。
type Stats struct {
	TotalContacts     int `json:"totalContacts"`
	TotalQuotes       int `json:"totalQuotes"`
	TotalBlogPosts    int `json:"totalBlogs"`
	TotalPortfolios   int `json:"totalPortfolios"`
	TotalTestimonials int `json:"totalTestimonials"`
	PendingContacts   int `json:"pendingContacts"`
	PendingQuotes     int `json:"pendingQuotes"`
	TodayContacts     int `json:"todayContacts"`
	TodayQuotes       int `json:"todayQuotes"`
	WeekContacts      int `json:"weekContacts"`
	WeekQuotes        int `json:"weekQuotes"`
}

// Derive はスナップショットから集計値を計算する。
// 「今日」はnowのロケーションにおける0時以降、「今週」はnow-168h以降。
// 同じ入力に対して常に同じ結果を返す。
func Derive(snap *model.Snapshot, now time.Time) Stats {
	if snap == nil {
		return Stats{}
	}

	startOfDay := StartOfDay(now)
	weekAgo := now.Add(-weekWindow)

	stats := Stats{
		TotalContacts:     len(snap.Contacts),
		TotalQuotes:       len(snap.Quotes),
		TotalBlogPosts:    len(snap.BlogPosts),
		TotalPortfolios:   len(snap.PortfolioCases),
		TotalTestimonials: len(snap.Testimonials),
	}

	for _, c := range snap.Contacts {
		if c.Status == model.StatusPending {
			stats.PendingContacts++
		}
		if !c.CreatedAt.Before(startOfDay) {
			stats.TodayContacts++
		}
		if !c.CreatedAt.Before(weekAgo) {
			stats.WeekContacts++
		}
	}

	for _, q := range snap.Quotes {
		if q.Status == model.StatusPending {
			stats.PendingQuotes++
		}
		if !q.CreatedAt.Before(startOfDay) {
			stats.TodayQuotes++
		}
		if !q.CreatedAt.Before(weekAgo) {
			stats.WeekQuotes++
		}
	}

	return stats
}

// StartOfDay はtのロケーションにおける当日0時を返す。
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
