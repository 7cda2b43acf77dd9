// Package cleanup は期限切れの管理セッションと古い監査ログを削除する定期ジョブを提供する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は発行時刻が指定時刻より前のセッションを削除する。
type SessionPurger interface {
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPurger は指定時刻より前の監査ログを削除する。
type AuditPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ViewEvictor はメモリ上のビューのうち一定時間使われていないものを破棄する。
// dashboard.Serviceが実装する。
type ViewEvictor interface {
	CloseIdle(before time.Time) int
}

// CleanupJob は期限切れデータの削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	sessions      SessionPurger
	audit         AuditPurger
	views         ViewEvictor
	logger        *slog.Logger
	nowFunc       func() time.Time
	SessionTTL    time.Duration // セッションの有効期限（デフォルト: 24時間）
	RetentionDays int           // 監査ログの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// viewsはサーバープロセス内で実行する場合のみ指定し、それ以外はnilでよい。
func NewCleanupJob(sessions SessionPurger, audit AuditPurger, views ViewEvictor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:      sessions,
		audit:         audit,
		views:         views,
		logger:        logger,
		nowFunc:       time.Now,
		SessionTTL:    24 * time.Hour,
		RetentionDays: 90,
	}
}

// Run はセッション、監査ログ、ビューの順に削除する。
// 1つが失敗しても残りは実行し、エラーはまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.nowFunc()
	sessionCutoff := start.Add(-j.SessionTTL)
	auditCutoff := start.AddDate(0, 0, -j.RetentionDays)

	var errs []error

	sessions, err := j.sessions.DeleteIssuedBefore(ctx, sessionCutoff)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("セッション削除に失敗: %w", err))
	}

	audits, err := j.audit.DeleteOlderThan(ctx, auditCutoff)
	if err != nil {
		j.logger.Error("監査ログの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		errs = append(errs, fmt.Errorf("監査ログ削除に失敗: %w", err))
	}

	views := 0
	if j.views != nil {
		views = j.views.CloseIdle(sessionCutoff)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessions),
		slog.Int64("deleted_audit_entries", audits),
		slog.Int("closed_views", views),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return errors.Join(errs...)
}

// Start はinterval間隔でRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// Runはエラーを自分でログに記録する
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
