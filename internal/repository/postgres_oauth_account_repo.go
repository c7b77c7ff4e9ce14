package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nodap/nodap-server/internal/model"
)

// PostgresOauthAccountRepo はPostgreSQLを使用したOAuth連携リポジトリ。
type PostgresOauthAccountRepo struct {
	db *sql.DB
}

// NewPostgresOauthAccountRepo はPostgresOauthAccountRepoを生成する。
func NewPostgresOauthAccountRepo(db *sql.DB) *PostgresOauthAccountRepo {
	return &PostgresOauthAccountRepo{db: db}
}

// FindActiveByProviderUserID は連携・ユーザーともにアクティブな行を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresOauthAccountRepo) FindActiveByProviderUserID(ctx context.Context, provider model.Provider, providerUserID string) (*model.OauthAccount, error) {
	account := &model.OauthAccount{}
	err := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.user_id, a.provider, a.provider_user_id, a.created_at, a.deleted_at
		 FROM user_oauth_accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = $1 AND a.provider_user_id = $2
		   AND a.deleted_at IS NULL AND u.deleted_at IS NULL`,
		provider, providerUserID,
	).Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderUserID,
		&account.CreatedAt, &account.DeletedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active oauth account: %w", err)
	}

	return account, nil
}

// FindByProviderUserIDIncludeDeleted はソフトデリート済みを含めて
// 連携と所有ユーザーを検索する。見つからない場合は(nil, nil, nil)を返す。
func (r *PostgresOauthAccountRepo) FindByProviderUserIDIncludeDeleted(ctx context.Context, provider model.Provider, providerUserID string) (*model.OauthAccount, *model.User, error) {
	account := &model.OauthAccount{}
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.user_id, a.provider, a.provider_user_id, a.created_at, a.deleted_at,
		        u.id, u.nickname, u.email, u.profile_image, u.created_at, u.updated_at, u.deleted_at
		 FROM user_oauth_accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = $1 AND a.provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderUserID,
		&account.CreatedAt, &account.DeletedAt,
		&user.ID, &user.Nickname, &user.Email, &user.ProfileImage,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find oauth account including deleted: %w", err)
	}

	return account, user, nil
}

// FindActiveByUserID は指定ユーザーのアクティブな連携を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresOauthAccountRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.OauthAccount, error) {
	account := &model.OauthAccount{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at, deleted_at
		 FROM user_oauth_accounts
		 WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderUserID,
		&account.CreatedAt, &account.DeletedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth account by user ID: %w", err)
	}

	return account, nil
}

// compile-time interface check
var _ OauthAccountRepository = (*PostgresOauthAccountRepo)(nil)
