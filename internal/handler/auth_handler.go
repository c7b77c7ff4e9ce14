package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nodap/nodap-server/internal/auth"
	"github.com/nodap/nodap-server/internal/metrics"
	"github.com/nodap/nodap-server/internal/middleware"
	"github.com/nodap/nodap-server/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, code string, carrier auth.CredentialCarrier) (*auth.LoginResult, error)
	Reissue(ctx context.Context, carrier auth.CredentialCarrier) error
	Logout(ctx context.Context, carrier auth.CredentialCarrier)
	DevLogin(ctx context.Context, userID string, carrier auth.CredentialCarrier) (*auth.LoginResult, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	cookies   CookieConfig
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, cookies CookieConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		cookies:   cookies,
		collector: collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	AuthorizationCode string `json:"authorizationCode"`
}

// loginResponse はログインレスポンスのボディ。
type loginResponse struct {
	User        userResponse `json:"user"`
	IsNewMember bool         `json:"isNewMember"`
}

// userResponse はユーザー情報のレスポンス表現。
type userResponse struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
	}
}

// Login はカカオの認可コードでログインする。
// POST /auth/login/kakao
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthorizationCode == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("authorizationCodeは必須です"))
		return
	}

	carrier := NewCookieCarrier(w, r, h.cookies)
	result, err := h.service.Login(r.Context(), req.AuthorizationCode, carrier)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.collector.RecordLoginFailure(apiErr.Code)
		}
		writeServiceError(w, r, err)
		return
	}

	h.collector.RecordLoginSuccess(result.IsNewMember)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		User:        toUserResponse(result.User),
		IsNewMember: result.IsNewMember,
	})
}

// Reissue はRefresh Tokenでトークンペアを再発行する。
// POST /auth/reissue
func (h *AuthHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	carrier := NewCookieCarrier(w, r, h.cookies)
	if err := h.service.Reissue(r.Context(), carrier); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.collector.RecordReissue()
	w.WriteHeader(http.StatusNoContent)
}

// Logout はセッションを破棄する。常に204を返す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	carrier := NewCookieCarrier(w, r, h.cookies)
	h.service.Logout(r.Context(), carrier)
	w.WriteHeader(http.StatusNoContent)
}

// devLoginRequest は開発用ログインのボディ。
type devLoginRequest struct {
	UserID string `json:"userId"`
}

// DevLogin はプロバイダーを経由しない既存ユーザーでの開発用ログイン。
// ローカル環境でのみルーティングされる。
// POST /auth/login/dev
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	var req devLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("userIdは必須です"))
		return
	}

	carrier := NewCookieCarrier(w, r, h.cookies)
	result, err := h.service.DevLogin(r.Context(), req.UserID, carrier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		User:        toUserResponse(result.User),
		IsNewMember: result.IsNewMember,
	})
}
