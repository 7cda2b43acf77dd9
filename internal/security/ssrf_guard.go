package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// blockedPrefixes はバックエンドURLとして受け付けないアドレス範囲。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // クラウドメタデータ (169.254.169.254) を含む
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// BackendGuard はバックエンドAPIへの接続先を検証する。
// 本番ではベースURLが公開アドレスであることを起動時とダイヤル時の両方で確認する。
type BackendGuard struct {
	allowLoopback bool
}

// NewBackendGuard はBackendGuardを生成する。
// allowLoopbackがtrueの場合はローカル開発用にlocalhostとループバックを許可する。
func NewBackendGuard(allowLoopback bool) *BackendGuard {
	return &BackendGuard{allowLoopback: allowLoopback}
}

// NewSafeClient はプライベートアドレスへのダイヤルを拒否するHTTPクライアントを生成する。
// 許可するポートはベースURLのポート（省略時は80と443）。
// safeurlはDNS解決後のIPアドレスをDialerのControlフックで検証する。
func (g *BackendGuard) NewSafeClient(baseURLs []string, timeout time.Duration) (*http.Client, error) {
	ports := map[int]struct{}{80: {}, 443: {}}
	for _, raw := range baseURLs {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid backend URL %q: %w", raw, err)
		}
		if p := u.Port(); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid port in backend URL %q: %w", raw, err)
			}
			ports[n] = struct{}{}
		}
	}

	allowedPorts := make([]int, 0, len(ports))
	for p := range ports {
		allowedPorts = append(allowedPorts, p)
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(allowedPorts...).
		Build()

	return safeurl.Client(config).Client, nil
}

// ValidateBaseURL はバックエンドのベースURLを静的に検証する。
// スキームはhttp/https、ホストは空でなく、ブロック対象のアドレスでないこと。
// DNS再バインディングはNewSafeClient側のダイヤル時検証で防ぐ。
func (g *BackendGuard) ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if strings.EqualFold(host, "localhost") {
		if g.allowLoopback {
			return nil
		}
		return fmt.Errorf("blocked host: %s", host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// ホスト名はダイヤル時に検証する
		return nil
	}
	addr = addr.Unmap()
	if g.allowLoopback && addr.IsLoopback() {
		return nil
	}
	if isBlockedAddr(addr) {
		return fmt.Errorf("blocked IP address: %s", addr)
	}
	return nil
}

func isBlockedAddr(addr netip.Addr) bool {
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
