// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, user, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthCodeRejected    = "AUTH_CODE_REJECTED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeTokenNotFound       = "AUTH_TOKEN_NOT_FOUND"
	ErrCodeInvalidToken        = "AUTH_INVALID_TOKEN"
	ErrCodeRefreshExpired      = "AUTH_REFRESH_TOKEN_EXPIRED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeNicknameDuplicated  = "NICKNAME_DUPLICATED"
	ErrCodeNicknameExhausted   = "NICKNAME_EXHAUSTED"
	ErrCodeInvalidInput        = "INVALID_INPUT_VALUE"
)

// NewAuthCodeRejectedError は認可コードがプロバイダーに拒否された場合のエラーを生成する。
func NewAuthCodeRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthCodeRejected,
		Message:  "認可コードが無効または期限切れです。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewProviderUnavailableError はプロバイダーとの通信に失敗した場合のエラーを生成する。
func NewProviderUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderUnavailable,
		Message:  "カカオとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewTokenNotFoundError は認証トークンが見つからない場合のエラーを生成する。
func NewTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  "認証トークンが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTokenError は無効なトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "無効な認証トークンです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRefreshExpiredError はRefresh Tokenが期限切れまたは失効済みの場合のエラーを生成する。
// ストア上の不一致（別端末ログインや強制ログアウトによる失効）もこのエラーに含める。
func NewRefreshExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshExpired,
		Message:  "ログインの有効期限が切れました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "user",
		Action:   "ログインし直してください。",
	}
}

// NewNicknameDuplicatedError はニックネームが使用済みの場合のエラーを生成する。
func NewNicknameDuplicatedError(nickname string) *APIError {
	return &APIError{
		Code:     ErrCodeNicknameDuplicated,
		Message:  fmt.Sprintf("このニックネームは既に使用されています: %s", nickname),
		Category: "validation",
		Action:   "別のニックネームを指定してください。",
	}
}

// NewNicknameExhaustedError はニックネーム自動生成の試行上限に達した場合のエラーを生成する。
// 実運用で発生することは想定しておらず、一意性インデックスの破損を疑うべき状態。
func NewNicknameExhaustedError() *APIError {
	return &APIError{
		Code:     ErrCodeNicknameExhausted,
		Message:  "ニックネームの自動生成に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidInputError は入力値が不正な場合のエラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
