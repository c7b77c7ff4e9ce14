// Package oauth は外部IdPとのOAuth認証フローを提供する。
package oauth

import (
	"context"
	"errors"
)

var (
	// ErrCodeRejected は認可コードがプロバイダーに拒否されたことを示す。
	// コードの期限切れ、使用済み、不正のいずれもこのエラーに集約する。
	ErrCodeRejected = errors.New("authorization code rejected by provider")
	// ErrUnavailable はプロバイダーとの通信失敗（ネットワーク、5xx、不正応答）を示す。
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Profile はプロバイダーから取得した正規化済みユーザー情報を表す。
// Emailはプロバイダーがメールアドレスを開示しなかった場合、呼び出し側で
// 代替アドレス（model.NoEmailSentinel）に置き換えられる。
type Profile struct {
	ProviderUserID string
	Email          string // 未開示の場合は空
	Nickname       string // 未開示の場合は空
	ProfileImage   string // 未開示の場合は空
}

// Provider はOAuth認証プロバイダーのインターフェース。
// AccountResolverとSessionManagerはこの抽象のみに依存し、
// プロバイダー固有の知識を持たない。
type Provider interface {
	// ExchangeCode は認可コードをプロバイダーのアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchProfile はアクセストークンで正規化済みプロフィールを取得する。
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// Revoke はプロバイダー側の連携を解除する。ベストエフォートであり、
	// 失敗してもログに記録するのみで呼び出し元の処理を妨げてはならない。
	Revoke(ctx context.Context, providerUserID string) error
}
