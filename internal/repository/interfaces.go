// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/nodap/nodap-server/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのアクティブなユーザーを取得する。
	// 見つからない、または退会済みの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// ExistsByNickname はアクティブなユーザーの中でニックネームが使用済みかを返す。
	// 退会済みユーザーのニックネームは使用済みとして扱わない。
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)

	// CreateWithOauthAccount はユーザーとOAuth連携を同一トランザクションで作成する。
	// どちらか一方だけが残る状態を作ってはならない。
	CreateWithOauthAccount(ctx context.Context, user *model.User, account *model.OauthAccount) error

	// RestoreWithOauthAccount は退会済みユーザーとOAuth連携のソフトデリートを
	// 同一トランザクションで解除する。各行のdeleted_atは独立にクリアする。
	RestoreWithOauthAccount(ctx context.Context, userID, accountID string) error

	// SoftDeleteWithOauthAccount はユーザーと紐付くOAuth連携を
	// 同一トランザクションでソフトデリートする。
	SoftDeleteWithOauthAccount(ctx context.Context, userID string) error

	// Update はユーザーのプロフィール情報を更新する。
	Update(ctx context.Context, user *model.User) error
}

// OauthAccountRepository は外部IdP連携情報の永続化インターフェース。
type OauthAccountRepository interface {
	// FindActiveByProviderUserID は連携・ユーザーともにアクティブな行を検索する。
	// 見つからない場合はnilを返す。
	FindActiveByProviderUserID(ctx context.Context, provider model.Provider, providerUserID string) (*model.OauthAccount, error)

	// FindByProviderUserIDIncludeDeleted はソフトデリート済みを含めて
	// 連携と所有ユーザーを検索する。見つからない場合は(nil, nil, nil)を返す。
	FindByProviderUserIDIncludeDeleted(ctx context.Context, provider model.Provider, providerUserID string) (*model.OauthAccount, *model.User, error)

	// FindActiveByUserID は指定ユーザーのアクティブな連携を取得する。
	// 見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.OauthAccount, error)
}
