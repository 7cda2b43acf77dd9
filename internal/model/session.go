package model

import "time"

// AdminSession は管理画面のログインセッションを表す。
// 認証済みフラグと発行時刻の組で有効性を判定する。
type AdminSession struct {
	ID            string
	Authenticated bool
	IssuedAt      time.Time
}

// AuditAction は監査ログに記録する管理操作の種別。
type AuditAction string

const (
	AuditUpdateStatus    AuditAction = "update_status"
	AuditDelete          AuditAction = "delete"
	AuditTogglePublished AuditAction = "toggle_published"
)

// AuditEntry は管理画面から実行した書き込み操作の記録。
type AuditEntry struct {
	ID           string
	SessionID    string
	Action       AuditAction
	Resource     Resource
	TargetID     string
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}
