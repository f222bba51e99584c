// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// maxURLLength は受け付けるOAuth認可URLの最大長。
const maxURLLength = 4096

// URLGuard はブラウザやHTTPクライアントに渡すURLを検証する。
// 呼び出し元が指定したOAuth認可URLの事前検証と、上流疎通確認用のHTTPクライアント生成に使う。
type URLGuard interface {
	// ValidateURL はURLがブラウザで開いてよい公開URLかを静的に検証する。
	ValidateURL(rawURL string) error

	// NewSafeClient はプライベートIP等への接続をDialerレベルで拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client
}

// allowedSchemes は許可するURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は拒否するネットワーク範囲。
var blockedNetworks []*net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（クラウドメタデータIPを含む）
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// CGNAT (RFC 6598)
		"100.64.0.0/10",
		// IPv6ループバック、リンクローカル、ユニークローカル
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, network)
	}
}

// SSRFGuard はURLGuardの実装。
type SSRFGuard struct{}

var _ URLGuard = (*SSRFGuard)(nil)

// NewSSRFGuard はSSRFGuardを生成する。
func NewSSRFGuard() *SSRFGuard {
	return &SSRFGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを生成する。
// 接続先ポートは80/443のみ許可し、DNS解決後のIPもDialerのControlフックで検証される。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLの安全性を静的に検証する。DNS解決は行わない。
// ブラウザはsafeurlのDialerを経由しないため、ここではIPリテラルとlocalhost系ホスト名を拒否する。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("empty URL")
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL too long: %d bytes (max %d)", len(rawURL), maxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}
	if parsed.User != nil {
		return fmt.Errorf("credentials in URL are not allowed")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsUnspecified() || ip.IsLoopback() {
		return true
	}
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// isBlockedHostname はlocalhostとそのサブドメイン、.internal/.local を拒否する。
func isBlockedHostname(host string) bool {
	lower := strings.TrimSuffix(strings.ToLower(host), ".")
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	return strings.HasSuffix(lower, ".internal") || strings.HasSuffix(lower, ".local")
}
