// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/chabakapro/admin/internal/model"
)

// AdminSessionRepository は管理画面セッションの永続化インターフェース。
type AdminSessionRepository interface {
	// Save はセッションを保存する。同じIDが存在する場合は上書きする。
	Save(ctx context.Context, session *model.AdminSession) error

	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	// 有効期限の判定は呼び出し側で行う。
	FindByID(ctx context.Context, id string) (*model.AdminSession, error)

	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error

	// DeleteIssuedBefore はcutoffより前に発行されたセッションを削除し、削除件数を返す。
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRepository は管理操作の監査ログの永続化インターフェース。
type AuditRepository interface {
	// Create は監査エントリを作成する。IDが空の場合は生成する。
	Create(ctx context.Context, entry *model.AuditEntry) error

	// ListRecent は新しい順に最大limit件の監査エントリを返す。
	ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)

	// DeleteOlderThan はcutoffより前の監査エントリを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
