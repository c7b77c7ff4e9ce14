// Package user はユーザープロフィールの参照・更新・退会を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/nodap/nodap-server/internal/auth"
	"github.com/nodap/nodap-server/internal/model"
	"github.com/nodap/nodap-server/internal/oauth"
	"github.com/nodap/nodap-server/internal/repository"
	"github.com/nodap/nodap-server/internal/session"
	"github.com/nodap/nodap-server/internal/token"
)

// Service はユーザープロフィールと退会処理を管理する。
type Service struct {
	users    repository.UserRepository
	accounts repository.OauthAccountRepository
	provider oauth.Provider
	store    session.Store
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, accounts repository.OauthAccountRepository, provider oauth.Provider, store session.Store, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		accounts: accounts,
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// GetMyInfo は自分のプロフィールを取得する。
func (s *Service) GetMyInfo(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateMyInfo はニックネームを更新する。
// 新しいニックネームがアクティブな他ユーザーと重複する場合は拒否する。
func (s *Service) UpdateMyInfo(ctx context.Context, userID, nickname string) (*model.User, error) {
	if err := validateNickname(nickname); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	// 自分自身の現ニックネームへの変更は重複とみなさない
	if nickname != user.Nickname {
		exists, err := s.users.ExistsByNickname(ctx, nickname)
		if err != nil {
			return nil, fmt.Errorf("failed to check nickname: %w", err)
		}
		if exists {
			return nil, model.NewNicknameDuplicatedError(nickname)
		}
	}

	user.Nickname = nickname
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// CheckNickname はニックネームが使用可能かどうかを返す。
func (s *Service) CheckNickname(ctx context.Context, nickname string) (bool, error) {
	if err := validateNickname(nickname); err != nil {
		return false, err
	}

	exists, err := s.users.ExistsByNickname(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("failed to check nickname: %w", err)
	}
	return !exists, nil
}

// Withdraw は退会処理を行う。
// セッション失効、プロバイダー連携解除（ベストエフォート）、
// ソフトデリート、キャリアのクリアを順に行う。
// 退会後も行は残り、同じ外部IDでの再ログインで同一ユーザーIDのまま復帰できる。
func (s *Service) Withdraw(ctx context.Context, userID string, carrier auth.CredentialCarrier) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	// 先にセッションを失効させ、退会に失敗してもトークン再発行はできなくする
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	// プロバイダー側の連携解除はベストエフォート。失敗しても退会は続行する
	account, err := s.accounts.FindActiveByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find oauth account: %w", err)
	}
	if account != nil {
		if err := s.provider.Revoke(ctx, account.ProviderUserID); err != nil {
			s.logger.WarnContext(ctx, "プロバイダー連携解除に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.users.SoftDeleteWithOauthAccount(ctx, userID); err != nil {
		return fmt.Errorf("failed to soft-delete user: %w", err)
	}

	carrier.Clear(token.ClassAccess)
	carrier.Clear(token.ClassRefresh)

	s.logger.InfoContext(ctx, "ユーザーが退会しました", slog.String("user_id", userID))
	return nil
}

// validateNickname はニックネームの形式を検証する。
func validateNickname(nickname string) error {
	if nickname == "" {
		return model.NewInvalidInputError("ニックネームが空です")
	}
	if utf8.RuneCountInString(nickname) > model.NicknameMaxLength {
		return model.NewInvalidInputError(
			fmt.Sprintf("ニックネームは%d文字以内にしてください", model.NicknameMaxLength))
	}
	return nil
}
