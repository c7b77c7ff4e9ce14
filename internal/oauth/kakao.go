package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultKakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"
	defaultKakaoUnlinkURL   = "https://kapi.kakao.com/v1/user/unlink"
)

// KakaoConfig はカカオOAuthプロバイダーの設定。
type KakaoConfig struct {
	ClientID     string
	ClientSecret string // カカオではオプション
	RedirectURI  string
	Timeout      time.Duration

	// テスト用にオーバーライド可能なURL
	TokenURL    string
	UserInfoURL string
	UnlinkURL   string
}

// KakaoProvider はカカオOAuth 2.0による認証を提供する。
type KakaoProvider struct {
	config KakaoConfig
	client *http.Client
	logger *slog.Logger
}

// NewKakaoProvider はKakaoProviderを生成する。
// 外部呼び出しのタイムアウトは必ず有限値を設定する。
func NewKakaoProvider(config KakaoConfig, logger *slog.Logger) *KakaoProvider {
	if config.TokenURL == "" {
		config.TokenURL = defaultKakaoTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultKakaoUserInfoURL
	}
	if config.UnlinkURL == "" {
		config.UnlinkURL = defaultKakaoUnlinkURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &KakaoProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// kakaoTokenResponse はカカオのトークンエンドポイントのレスポンス。
type kakaoTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// kakaoUserInfo はカカオのユーザー情報エンドポイントのレスポンス。
// メール・ニックネーム・プロフィール画像の開示はユーザーの同意に依存する。
type kakaoUserInfo struct {
	ID           json.Number `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// ExchangeCode は認可コードをカカオのアクセストークンに交換する。
// 4xx応答はErrCodeRejected、ネットワーク障害・5xx・不正応答はErrUnavailableを返す。
func (p *KakaoProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.RedirectURI},
		"code":         {code},
	}
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read token response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		p.logger.WarnContext(ctx, "kakao rejected authorization code",
			slog.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: status %d", ErrCodeRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var tokenResp kakaoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse token response: %v", ErrUnavailable, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrUnavailable)
	}

	return tokenResp.AccessToken, nil
}

// FetchProfile はアクセストークンでカカオのユーザー情報を取得し、正規化して返す。
// 失敗はすべてErrUnavailableに集約する。メール未開示は失敗ではなく空文字列を返す。
func (p *KakaoProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user info request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read user info response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user info endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var userInfo kakaoUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("%w: failed to parse user info response: %v", ErrUnavailable, err)
	}
	if userInfo.ID.String() == "" {
		return nil, fmt.Errorf("%w: empty user id in user info response", ErrUnavailable)
	}

	return &Profile{
		ProviderUserID: userInfo.ID.String(),
		Email:          userInfo.KakaoAccount.Email,
		Nickname:       userInfo.KakaoAccount.Profile.Nickname,
		ProfileImage:   userInfo.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}

// Revoke はカカオ側の連携を解除する（Admin Key方式）。
// 失敗はログに記録して握りつぶす。退会処理を妨げてはならないため。
func (p *KakaoProvider) Revoke(ctx context.Context, providerUserID string) error {
	data := url.Values{
		"target_id_type": {"user_id"},
		"target_id":      {providerUserID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.UnlinkURL, strings.NewReader(data.Encode()))
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to create kakao unlink request",
			slog.String("error", err.Error()),
		)
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "KakaoAK "+p.config.ClientID)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.ErrorContext(ctx, "kakao unlink request failed",
			slog.String("provider_user_id", providerUserID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		p.logger.ErrorContext(ctx, "kakao unlink returned non-200",
			slog.String("provider_user_id", providerUserID),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	p.logger.InfoContext(ctx, "kakao unlink succeeded",
		slog.String("provider_user_id", providerUserID),
	)
	return nil
}

// compile-time interface check
var _ Provider = (*KakaoProvider)(nil)
