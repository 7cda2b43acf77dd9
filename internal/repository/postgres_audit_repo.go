package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chabakapro/admin/internal/model"
)

// PostgresAuditRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresAuditRepo struct {
	db *sql.DB
}

// NewPostgresAuditRepo はPostgresAuditRepoを生成する。
func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

// Create は監査エントリを作成する。
func (r *PostgresAuditRepo) Create(ctx context.Context, entry *model.AuditEntry) error {
	prepareAuditEntry(entry, time.Now())

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_audit_log
		   (id, session_id, action, resource, target_id, success, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.SessionID, string(entry.Action), string(entry.Resource),
		entry.TargetID, entry.Success, entry.ErrorMessage, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// Record はdashboard.AuditRecorderを満たすためのCreateの別名。
func (r *PostgresAuditRepo) Record(ctx context.Context, entry *model.AuditEntry) error {
	return r.Create(ctx, entry)
}

// ListRecent は新しい順に最大limit件の監査エントリを返す。
func (r *PostgresAuditRepo) ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, action, resource, target_id, success, error_message, created_at
		 FROM admin_audit_log
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		var action, resource string
		if err := rows.Scan(&e.ID, &e.SessionID, &action, &resource, &e.TargetID, &e.Success, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		e.Resource = model.Resource(resource)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan はcutoffより前の監査エントリを削除する。
func (r *PostgresAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_audit_log WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// prepareAuditEntry は未設定のIDと作成日時を補完する。
func prepareAuditEntry(entry *model.AuditEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
}

// compile-time interface check
var _ AuditRepository = (*PostgresAuditRepo)(nil)
