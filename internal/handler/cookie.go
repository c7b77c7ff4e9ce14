// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"net/http"

	"github.com/nodap/nodap-server/internal/auth"
	"github.com/nodap/nodap-server/internal/middleware"
	"github.com/nodap/nodap-server/internal/token"
)

// CookieConfig はトークンCookieの属性設定。
type CookieConfig struct {
	Domain        string
	Secure        bool
	AccessMaxAge  int // Access Token Cookieの有効期間（秒）
	RefreshMaxAge int // Refresh Token Cookieの有効期間（秒）
}

// cookieCarrier はHTTP CookieによるCredentialCarrierの実装。
// 1リクエスト・レスポンスの組に紐づく使い捨てオブジェクト。
type cookieCarrier struct {
	w      http.ResponseWriter
	r      *http.Request
	config CookieConfig
}

// NewCookieCarrier はリクエスト・レスポンスに紐づくCredentialCarrierを生成する。
func NewCookieCarrier(w http.ResponseWriter, r *http.Request, config CookieConfig) auth.CredentialCarrier {
	return &cookieCarrier{w: w, r: r, config: config}
}

// cookieName はトークン種別に対応するCookie名を返す。
func cookieName(class token.Class) string {
	if class == token.ClassRefresh {
		return middleware.RefreshTokenCookie
	}
	return middleware.AccessTokenCookie
}

// Get はリクエストのCookieからトークンを取り出す。
func (c *cookieCarrier) Get(class token.Class) (string, bool) {
	cookie, err := c.r.Cookie(cookieName(class))
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Set はレスポンスにHttpOnly Cookieとしてトークンを書き込む。
func (c *cookieCarrier) Set(class token.Class, value string) {
	maxAge := c.config.AccessMaxAge
	if class == token.ClassRefresh {
		maxAge = c.config.RefreshMaxAge
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     cookieName(class),
		Value:    value,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// Clear はCookieを即時失効させる。
func (c *cookieCarrier) Clear(class token.Class) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     cookieName(class),
		Value:    "",
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}
