// Package auth はログイン・トークン再発行・ログアウトの
// セッションライフサイクルを提供する。
package auth

import "github.com/nodap/nodap-server/internal/token"

// CredentialCarrier はクライアントとの間でトークンを受け渡す媒体の抽象。
// HTTP実装ではCookieに対応するが、サービス層はその詳細を知らない。
type CredentialCarrier interface {
	// Get は指定種別のトークンを取り出す。存在しない場合はfalseを返す。
	Get(class token.Class) (string, bool)

	// Set は指定種別のトークンを格納する。既存の値は上書きされる。
	Set(class token.Class, value string)

	// Clear は指定種別のトークンを破棄する。存在しない場合は何もしない。
	Clear(class token.Class)
}
