// Package security は外部通信とストア書き込みの防御機能を提供する。
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

// OutboundGuardService は外向きHTTPの防御機能のインターフェースを定義する。
// プロバイダ/ストアへのクライアント生成と、ストアに添付として書き込む
// メディアURLの事前検証の両方で使用される。
type OutboundGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// プライベートIP、ループバック、リンクローカル、メタデータIPへの
	// リクエストがDialerレベルでブロックされる。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateAttachmentURL はストアに添付URLとして渡す前の静的検証を行う。
	// 不正なURLはストア側がフェッチしに行く前にここで弾く。
	ValidateAttachmentURL(rawURL string) error
}

// allowedSchemes は許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はブロックされるネットワーク範囲。
// パッケージ初期化時に1回だけパースする。DNS解決後のIP検証は
// safeurlがDialerレベルで行うため、ここは静的チェックのみ担う。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// outboundGuard はOutboundGuardServiceの実装。
type outboundGuard struct{}

// NewOutboundGuard はOutboundGuardServiceの新しいインスタンスを生成する。
func NewOutboundGuard() OutboundGuardService {
	return &outboundGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// DNS再バインディング攻撃にも対応している。プロバイダとストアの
// クライアントはどちらもこのクライアントをトランスポートとして使う。
func (g *outboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateAttachmentURL はメディアURLを添付フィールドに渡す前に静的検証する。
// スキーム、ホスト、IPアドレスを確認し、危険なURLの場合はエラーを返す。
// DNS解決を伴わないチェックのため、フォーマッタが同期パス内で毎件呼んでも安い。
func (g *outboundGuard) ValidateAttachmentURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	// IPアドレスの場合: ブロック対象CIDRとの照合
	ip := net.ParseIP(host)
	if ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	// ホスト名の場合: localhost等の危険なホスト名を拒否
	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// blockedHostnames はブロック対象のホスト名。
var blockedHostnames = []string{
	"localhost",
}

// isBlockedHostname はホスト名がブロック対象かを検証する。
func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return true
		}
	}
	return false
}
