// Package auth は管理画面のパスワードゲートとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chabakapro/admin/internal/model"
)

// DefaultSessionTTL はセッションの既定の有効期間。
const DefaultSessionTTL = 24 * time.Hour

// SessionStore はセッションの保存先のインターフェース。
// repository.AdminSessionRepositoryの部分集合として定義する。
type SessionStore interface {
	Save(ctx context.Context, session *model.AdminSession) error
	FindByID(ctx context.Context, id string) (*model.AdminSession, error)
	DeleteByID(ctx context.Context, id string) error
}

// Gate は管理画面への入場を制御する。
// 認証済みフラグと発行時刻を保存し、発行からTTL未満の間だけ有効とみなす。
// ログイン試行回数の制限は行わない。
type Gate struct {
	store        SessionStore
	passwordHash []byte
	ttl          time.Duration
	logger       *slog.Logger
	nowFunc      func() time.Time
}

// NewGate はGateを生成する。passwordHashはbcryptハッシュ。
// ttlが0以下の場合はDefaultSessionTTLを使用する。
func NewGate(store SessionStore, passwordHash string, ttl time.Duration, logger *slog.Logger) *Gate {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Gate{
		store:        store,
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		logger:       logger,
		nowFunc:      time.Now,
	}
}

// TTL はセッションの有効期間を返す。
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Authenticate はパスワードを検証し、一致すれば認証済みセッションを発行して保存する。
// 不一致の場合はINVALID_PASSWORDのAPIErrorを返し、何も保存しない。
func (g *Gate) Authenticate(ctx context.Context, candidate string) (*model.AdminSession, error) {
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(candidate)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			g.logger.Error("パスワードハッシュの検証に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return nil, model.NewInvalidPasswordError()
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.AdminSession{
		ID:            id,
		Authenticated: true,
		IssuedAt:      g.nowFunc(),
	}
	if err := g.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	g.logger.Info("管理者がログインしました", slog.String("session_id", session.ID))
	return session, nil
}

// IsSessionValid はセッションが認証済みで、発行から0以上TTL未満であればtrueを返す。
// 期限切れ・未認証・発行時刻が未来（改ざん）の場合は保存内容を削除してfalseを返す。
// 保存先の読み込みエラーもfalseとして扱う。
func (g *Gate) IsSessionValid(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	session, err := g.store.FindByID(ctx, id)
	if err != nil {
		g.logger.Error("セッションの取得に失敗しました",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		g.discard(ctx, id)
		return false
	}
	if session == nil {
		return false
	}

	age := g.nowFunc().Sub(session.IssuedAt)
	if !session.Authenticated || age < 0 || age >= g.ttl {
		g.logger.Info("無効なセッションを破棄します",
			slog.String("session_id", id),
			slog.Bool("authenticated", session.Authenticated),
			slog.Duration("age", age),
		)
		g.discard(ctx, id)
		return false
	}

	return true
}

// Logout はセッションを無条件に削除する。
func (g *Gate) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := g.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	g.logger.Info("管理者がログアウトしました", slog.String("session_id", id))
	return nil
}

func (g *Gate) discard(ctx context.Context, id string) {
	if err := g.store.DeleteByID(ctx, id); err != nil {
		g.logger.Error("セッションの削除に失敗しました",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
