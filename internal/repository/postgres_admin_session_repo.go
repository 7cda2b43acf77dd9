package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chabakapro/admin/internal/model"
)

// PostgresAdminSessionRepo はPostgreSQLを使用した管理画面セッションリポジトリ。
type PostgresAdminSessionRepo struct {
	db *sql.DB
}

// NewPostgresAdminSessionRepo はPostgresAdminSessionRepoを生成する。
func NewPostgresAdminSessionRepo(db *sql.DB) *PostgresAdminSessionRepo {
	return &PostgresAdminSessionRepo{db: db}
}

// Save はセッションを保存する。
func (r *PostgresAdminSessionRepo) Save(ctx context.Context, session *model.AdminSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, authenticated, issued_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   authenticated = EXCLUDED.authenticated,
		   issued_at = EXCLUDED.issued_at`,
		session.ID, session.Authenticated, session.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save admin session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。
func (r *PostgresAdminSessionRepo) FindByID(ctx context.Context, id string) (*model.AdminSession, error) {
	session := &model.AdminSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, authenticated, issued_at
		 FROM admin_sessions
		 WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.Authenticated, &session.IssuedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin session: %w", err)
	}

	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresAdminSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete admin session: %w", err)
	}
	return nil
}

// DeleteIssuedBefore はcutoffより前に発行されたセッションを削除する。
func (r *PostgresAdminSessionRepo) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE issued_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired admin sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ AdminSessionRepository = (*PostgresAdminSessionRepo)(nil)
