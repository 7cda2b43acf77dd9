package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "chabakapro_admin_session"

// CookieConfig はセッションCookieの設定。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// CookieCodec はセッションIDを署名付きCookieとして読み書きする。
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	config CookieConfig
}

// NewCookieCodec はCookieCodecを生成する。secretはHMAC署名鍵（32バイト以上）。
func NewCookieCodec(secret []byte, config CookieConfig) *CookieCodec {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultSessionTTL
	}
	sc := securecookie.New(secret, nil)
	sc.MaxAge(int(config.MaxAge.Seconds()))
	return &CookieCodec{sc: sc, config: config}
}

// Write はセッションIDを署名してCookieに書き込む。
func (c *CookieCodec) Write(w http.ResponseWriter, sessionID string) error {
	encoded, err := c.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   int(c.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read はCookieからセッションIDを取り出す。
// Cookieがない場合や署名の検証に失敗した場合はErrNoSessionを返す。
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}
	var sessionID string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &sessionID); err != nil {
		return "", errors.Join(ErrNoSession, err)
	}
	if sessionID == "" {
		return "", ErrNoSession
	}
	return sessionID, nil
}

// Clear はセッションCookieを削除する。
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ErrNoSession は有効なセッションCookieがないことを表す。
var ErrNoSession = errors.New("no valid session cookie")
