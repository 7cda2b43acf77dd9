package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, backend, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidPassword      = "INVALID_PASSWORD"
	ErrCodeSessionExpired       = "SESSION_EXPIRED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidResource      = "INVALID_RESOURCE"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	ErrCodeBackendWriteFailed   = "BACKEND_WRITE_FAILED"
	ErrCodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeCSRFInvalid          = "CSRF_INVALID"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewInvalidPasswordError はパスワード不一致エラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "Mot de passe incorrect",
		Category: "auth",
		Action:   "Vérifiez le mot de passe et réessayez.",
	}
}

// NewSessionExpiredError はセッション期限切れ（または未ログイン）エラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "Session expirée",
		Category: "auth",
		Action:   "Reconnectez-vous au tableau de bord.",
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Requête invalide",
		Category: "validation",
		Action:   "Envoyez un corps JSON valide.",
	}
}

// NewInvalidResourceError は未知のリソース指定エラーを生成する。
func NewInvalidResourceError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResource,
		Message:  fmt.Sprintf("Ressource inconnue: %s", resource),
		Category: "validation",
		Action:   "Utilisez contacts, quotes, blog, portfolio ou testimonials.",
	}
}

// NewInvalidStatusError は未定義の状態指定エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Statut invalide: %s", status),
		Category: "validation",
		Action:   "Utilisez pending, processed ou closed.",
	}
}

// NewUnsupportedOperationError はリソースが対応していない操作のエラーを生成する。
func NewUnsupportedOperationError(op string, resource Resource) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedOperation,
		Message:  fmt.Sprintf("Opération %s non disponible pour %s", op, resource),
		Category: "validation",
		Action:   "Cette ressource est en lecture seule depuis le tableau de bord.",
	}
}

// NewUpdateFailedError は更新系の書き込み失敗エラーを生成する。
func NewUpdateFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendWriteFailed,
		Message:  "Erreur lors de la mise à jour",
		Category: "backend",
		Action:   "Réessayez dans quelques instants.",
	}
}

// NewDeleteFailedError は削除の書き込み失敗エラーを生成する。
func NewDeleteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendWriteFailed,
		Message:  "Erreur lors de la suppression",
		Category: "backend",
		Action:   "Réessayez dans quelques instants.",
	}
}

// NewBackendUnavailableError は全リソースの取得に失敗した場合の通知を生成する。
func NewBackendUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnavailable,
		Message:  "Erreur de connexion au serveur",
		Category: "backend",
		Action:   "Vérifiez que l'API est joignable puis actualisez.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Trop de requêtes",
		Category: "system",
		Action:   "Patientez quelques secondes avant de réessayer.",
	}
}

// NewCSRFInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "Jeton CSRF invalide",
		Category: "auth",
		Action:   "Rechargez la page puis réessayez.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Une erreur interne est survenue",
		Category: "system",
		Action:   "Réessayez dans quelques instants.",
	}
}
