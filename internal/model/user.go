// Package model はドメインモデルを定義する。
package model

import "time"

// Provider は外部IdPの種別を表す。
type Provider string

const (
	// ProviderKakao はカカオOAuthプロバイダーを示す。
	ProviderKakao Provider = "kakao"
)

// NicknameMaxLength はニックネームの最大文字数（rune単位）。
const NicknameMaxLength = 16

// NoEmailSentinel はプロバイダーがメールアドレスを開示しなかった場合に
// 保存する代替アドレス。カカオはメール開示を保証しない。
const NoEmailSentinel = "no-email@nodap.com"

// User はサービス利用ユーザーを表す。
// DeletedAtがnilでない場合は退会済み（ソフトデリート）として扱う。
type User struct {
	ID           string
	Nickname     string
	Email        string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsDeleted はユーザーが退会済みかどうかを返す。
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// OauthAccount は外部IdPとの紐付け情報を表す。
// (Provider, ProviderUserID)の組はテーブル全体で一意。
// DeletedAtはUser側のDeletedAtとは独立に管理され、復元も独立に行う。
type OauthAccount struct {
	ID             string
	UserID         string
	Provider       Provider
	ProviderUserID string
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// IsDeleted は連携が解除済みかどうかを返す。
func (a *OauthAccount) IsDeleted() bool {
	return a.DeletedAt != nil
}
