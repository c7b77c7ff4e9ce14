// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/url"
)

// allowedSchemes はプロフィール画像URLで許可されるスキーム。
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// blockedNetworks は保存を拒否するネットワーク範囲。
// パッケージ初期化時に1回だけパースする。
// 保存されたURLはクライアントがそのまま参照するため、
// プライベートIPやメタデータIPを指すURLは保存段階で弾く。
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
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s", cidr))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// ValidateProfileImageURL はプロバイダーから受け取ったプロフィール画像URLの
// 安全性を検証する。スキーム、ホスト、IPリテラルを検証し、
// 危険なURLの場合はエラーを返す。
func ValidateProfileImageURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !allowedSchemes[parsed.Scheme] {
		return fmt.Errorf("scheme %q is not allowed", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	// IPリテラルの場合はブロック範囲を検証する。
	// ホスト名の場合のDNS解決は行わない（保存のみでフェッチはしないため）。
	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("IP %s is in a blocked network range", ip)
			}
		}
	}

	return nil
}
