package backend

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// devProxyPort はフロントエンド開発サーバーがAPIをプロキシするポート。
const devProxyPort = "4000"

// Resolver は管理画面を開いたホスト名からバックエンドのベースURLを決定する。
type Resolver struct {
	productionHosts map[string]struct{}
	productionURL   string
	defaultURL      string
}

// NewResolver はResolverの新しいインスタンスを生成する。
// productionURLが空の場合、本番ホストでもdefaultURLを使用する。
func NewResolver(productionHosts []string, productionURL, defaultURL string) *Resolver {
	hosts := make(map[string]struct{}, len(productionHosts))
	for _, h := range productionHosts {
		if n := normalizeHost(h); n != "" {
			hosts[n] = struct{}{}
		}
	}
	return &Resolver{
		productionHosts: hosts,
		productionURL:   strings.TrimRight(productionURL, "/"),
		defaultURL:      strings.TrimRight(defaultURL, "/"),
	}
}

// Resolve はリクエストのスキームとHost（host[:port]）からベースURLを返す。
//   - 本番ホスト → productionURL
//   - localhost:4000 → 同一オリジンの /api（開発プロキシ）。スキームはhttp/https以外ならhttp
//   - それ以外 → defaultURL
func (r *Resolver) Resolve(scheme, hostport string) string {
	host, port := splitHostPort(hostport)
	host = normalizeHost(host)

	if _, ok := r.productionHosts[host]; ok && r.productionURL != "" {
		return r.productionURL
	}

	if host == "localhost" && port == devProxyPort {
		if scheme != "https" {
			scheme = "http"
		}
		return scheme + "://" + net.JoinHostPort(host, port) + "/api"
	}

	return r.defaultURL
}

// normalizeHost はホスト名を小文字のASCII（Punycode）表現に変換する。
// 変換できない場合は小文字化のみ行う。
func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return ""
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(ascii)
}

func splitHostPort(hostport string) (string, string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, ""
	}
	return host, port
}
