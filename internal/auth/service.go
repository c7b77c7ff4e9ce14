package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nodap/nodap-server/internal/model"
	"github.com/nodap/nodap-server/internal/oauth"
	"github.com/nodap/nodap-server/internal/session"
	"github.com/nodap/nodap-server/internal/token"
)

// AccountResolver は外部IdPのプロファイルをユーザーに解決するインターフェース。
type AccountResolver interface {
	Resolve(ctx context.Context, provider model.Provider, profile oauth.Profile) (*model.User, bool, error)
}

// UserFinder はユーザーIDによる検索を提供するインターフェース。
// repository.UserRepositoryがこれを満たす。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// LoginResult はログイン処理の結果を表す。
type LoginResult struct {
	User        *model.User
	IsNewMember bool
}

// Service はログイン・再発行・ログアウトのセッションライフサイクルを管理する。
type Service struct {
	provider oauth.Provider
	resolver AccountResolver
	users    UserFinder
	codec    *token.Codec
	store    session.Store
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(provider oauth.Provider, resolver AccountResolver, users UserFinder, codec *token.Codec, store session.Store, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		resolver: resolver,
		users:    users,
		codec:    codec,
		store:    store,
		logger:   logger,
	}
}

// Login は認可コードからログインを完了させる。
// プロバイダーとのコード交換、プロフィール取得、ユーザー解決、
// トークンペア発行、セッション保存、キャリアへの書き込みを順に行う。
//
// セッションストアへの書き込みはユーザー解決（DBコミット）の後に行う。
// 逆順にするとストア書き込み成功・DB失敗時に孤立セッションが残る。
func (s *Service) Login(ctx context.Context, code string, carrier CredentialCarrier) (*LoginResult, error) {
	providerToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, translateProviderError(err)
	}

	profile, err := s.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		return nil, translateProviderError(err)
	}

	user, isNew, err := s.resolver.Resolve(ctx, model.ProviderKakao, *profile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	if err := s.issueSession(ctx, user.ID, carrier); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ログインしました",
		slog.String("user_id", user.ID),
		slog.Bool("is_new_member", isNew),
	)

	return &LoginResult{User: user, IsNewMember: isNew}, nil
}

// Reissue はRefresh Tokenを検証し、新しいトークンペアを発行する。
// ストア上の値と一致しないRefresh Token（別端末ログインや強制失効で
// 置き換えられたもの）は期限内であっても拒否する。
func (s *Service) Reissue(ctx context.Context, carrier CredentialCarrier) error {
	refresh, ok := carrier.Get(token.ClassRefresh)
	if !ok {
		return model.NewTokenNotFoundError()
	}

	claims, err := s.codec.Verify(refresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return model.NewRefreshExpiredError()
		}
		return model.NewInvalidTokenError()
	}
	if claims.Class != token.ClassRefresh {
		return model.NewInvalidTokenError()
	}

	valid, err := s.store.Validate(ctx, claims.Subject, refresh)
	if err != nil {
		return fmt.Errorf("failed to validate refresh token: %w", err)
	}
	if !valid {
		return model.NewRefreshExpiredError()
	}

	if err := s.issueSession(ctx, claims.Subject, carrier); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "トークンを再発行しました", slog.String("user_id", claims.Subject))
	return nil
}

// Logout はセッションを破棄する。
// Access Tokenが期限切れや不正でも処理を続行し、常にキャリアをクリアする。
// エラーを返さないため、クライアントは常にログアウト済みとして扱える。
func (s *Service) Logout(ctx context.Context, carrier CredentialCarrier) {
	if access, ok := carrier.Get(token.ClassAccess); ok {
		if claims, err := s.codec.VerifyIgnoringExpiry(access); err == nil {
			if err := s.store.Delete(ctx, claims.Subject); err != nil {
				s.logger.WarnContext(ctx, "セッション削除に失敗しました",
					slog.String("user_id", claims.Subject),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	carrier.Clear(token.ClassAccess)
	carrier.Clear(token.ClassRefresh)
}

// DevLogin はプロバイダーを経由せず既存ユーザーのIDで直接ログインする。
// 存在しないユーザーではログインできない。新規作成は通常のログイン経路のみ。
// ローカル開発環境専用で、ルーター側でEnvがlocalの場合のみ公開される。
func (s *Service) DevLogin(ctx context.Context, userID string, carrier CredentialCarrier) (*LoginResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user for dev login: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.issueSession(ctx, user.ID, carrier); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, IsNewMember: false}, nil
}

// issueSession はトークンペアを発行し、ストアとキャリアに書き込む。
func (s *Service) issueSession(ctx context.Context, userID string, carrier CredentialCarrier) error {
	access, err := s.codec.Issue(userID, token.ClassAccess)
	if err != nil {
		return fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(userID, token.ClassRefresh)
	if err != nil {
		return fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.store.Put(ctx, userID, refresh); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	carrier.Set(token.ClassAccess, access)
	carrier.Set(token.ClassRefresh, refresh)
	return nil
}

// translateProviderError はプロバイダー層のエラーをAPIエラーに変換する。
func translateProviderError(err error) error {
	if errors.Is(err, oauth.ErrCodeRejected) {
		return model.NewAuthCodeRejectedError()
	}
	if errors.Is(err, oauth.ErrUnavailable) {
		return model.NewProviderUnavailableError()
	}
	return fmt.Errorf("provider error: %w", err)
}
