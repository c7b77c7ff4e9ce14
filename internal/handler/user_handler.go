package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nodap/nodap-server/internal/auth"
	"github.com/nodap/nodap-server/internal/metrics"
	"github.com/nodap/nodap-server/internal/middleware"
	"github.com/nodap/nodap-server/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetMyInfo(ctx context.Context, userID string) (*model.User, error)
	UpdateMyInfo(ctx context.Context, userID, nickname string) (*model.User, error)
	CheckNickname(ctx context.Context, nickname string) (bool, error)
	Withdraw(ctx context.Context, userID string, carrier auth.CredentialCarrier) error
}

// UserHandler はユーザー関連のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	cookies   CookieConfig
	collector metrics.MetricsCollector
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookies CookieConfig, collector metrics.MetricsCollector) *UserHandler {
	return &UserHandler{
		service:   service,
		cookies:   cookies,
		collector: collector,
	}
}

// Me は自分のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	user, err := h.service.GetMyInfo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// updateRequest はプロフィール更新リクエストのボディ。
type updateRequest struct {
	Nickname string `json:"nickname"`
}

// Update はニックネームを更新する。
// PATCH /api/users/me
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	user, err := h.service.UpdateMyInfo(r.Context(), userID, req.Nickname)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// checkNicknameResponse はニックネーム確認レスポンスのボディ。
type checkNicknameResponse struct {
	Available bool `json:"available"`
}

// CheckNickname はニックネームが使用可能かを返す。
// GET /api/users/check-nickname?nickname=xxx
func (h *UserHandler) CheckNickname(w http.ResponseWriter, r *http.Request) {
	nickname := r.URL.Query().Get("nickname")

	available, err := h.service.CheckNickname(r.Context(), nickname)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkNicknameResponse{Available: available})
}

// Withdraw は退会処理を行う。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	carrier := NewCookieCarrier(w, r, h.cookies)
	if err := h.service.Withdraw(r.Context(), userID, carrier); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.collector.RecordWithdraw()
	w.WriteHeader(http.StatusNoContent)
}
