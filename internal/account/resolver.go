package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nodap/nodap-server/internal/model"
	"github.com/nodap/nodap-server/internal/oauth"
	"github.com/nodap/nodap-server/internal/repository"
	"github.com/nodap/nodap-server/internal/security"
)

// Resolver は外部IdPのプロファイルをファーストパーティのユーザーに解決する。
// 連携状態に応じて、既存ユーザーの返却・退会済みユーザーの復帰・
// 新規ユーザーの作成のいずれかを行う。
type Resolver struct {
	users    repository.UserRepository
	accounts repository.OauthAccountRepository
	nickname *NicknameGenerator
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository, accounts repository.OauthAccountRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:    users,
		accounts: accounts,
		nickname: NewNicknameGenerator(users),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve は外部IdPのプロファイルからユーザーを解決する。
// 戻り値の2番目は新規作成されたユーザーかどうかを示す。
//
// 同一外部IDでの初回ログインが同時に走った場合、一意制約違反で負けた側は
// 勝った側が作成した行に対して再解決を行う。
func (r *Resolver) Resolve(ctx context.Context, provider model.Provider, profile oauth.Profile) (*model.User, bool, error) {
	user, isNew, err := r.resolveOnce(ctx, provider, profile)
	if err != nil && repository.IsUniqueViolation(err) {
		r.logger.InfoContext(ctx, "初回ログインの競合を検出、再解決します",
			slog.String("provider", string(provider)),
			slog.String("provider_user_id", profile.ProviderUserID),
		)
		return r.resolveOnce(ctx, provider, profile)
	}
	return user, isNew, err
}

func (r *Resolver) resolveOnce(ctx context.Context, provider model.Provider, profile oauth.Profile) (*model.User, bool, error) {
	// 1. アクティブな連携が存在すれば、そのユーザーを返す
	account, err := r.accounts.FindActiveByProviderUserID(ctx, provider, profile.ProviderUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up active oauth account: %w", err)
	}
	if account != nil {
		user, err := r.users.FindByID(ctx, account.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load user for oauth account: %w", err)
		}
		if user == nil {
			return nil, false, fmt.Errorf("oauth account %s references missing user %s", account.ID, account.UserID)
		}
		return user, false, nil
	}

	// 2. ソフトデリート済みの連携が存在すれば、ユーザーごと復帰させる。
	// 復帰は再加入として扱い、クライアントにオンボーディングをやり直させる。
	account, user, err := r.accounts.FindByProviderUserIDIncludeDeleted(ctx, provider, profile.ProviderUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up oauth account including deleted: %w", err)
	}
	if account != nil {
		if err := r.users.RestoreWithOauthAccount(ctx, user.ID, account.ID); err != nil {
			return nil, false, fmt.Errorf("failed to restore withdrawn user: %w", err)
		}
		r.logger.InfoContext(ctx, "退会済みユーザーを復帰させました",
			slog.String("user_id", user.ID),
			slog.String("provider", string(provider)),
		)
		user.DeletedAt = nil
		return user, true, nil
	}

	// 3. どちらも存在しなければ新規ユーザーを作成する
	newUser, err := r.createUser(ctx, provider, profile)
	if err != nil {
		return nil, false, err
	}
	return newUser, true, nil
}

func (r *Resolver) createUser(ctx context.Context, provider model.Provider, profile oauth.Profile) (*model.User, error) {
	nickname, err := r.nickname.Generate(ctx, profile.Nickname)
	if err != nil {
		return nil, err
	}

	email := profile.Email
	if email == "" {
		email = model.NoEmailSentinel
	}

	// 不正なプロフィール画像URLは保存せず空にする。ログインは継続させる。
	profileImage := profile.ProfileImage
	if profileImage != "" {
		if err := security.ValidateProfileImageURL(profileImage); err != nil {
			r.logger.WarnContext(ctx, "不正なプロフィール画像URLを破棄しました",
				slog.String("provider_user_id", profile.ProviderUserID),
				slog.String("error", err.Error()),
			)
			profileImage = ""
		}
	}

	now := r.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Nickname:     nickname,
		Email:        email,
		ProfileImage: profileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account := &model.OauthAccount{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       provider,
		ProviderUserID: profile.ProviderUserID,
		CreatedAt:      now,
	}

	if err := r.users.CreateWithOauthAccount(ctx, user, account); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "新規ユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.String("provider", string(provider)),
	)

	return user, nil
}
