// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nodap/nodap-server/internal/model"
	"github.com/nodap/nodap-server/internal/token"
)

// Cookie名。クライアントとの契約であり変更してはならない。
const (
	// AccessTokenCookie はAccess Tokenを格納するCookie名。
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie はRefresh Tokenを格納するCookie名。
	RefreshTokenCookie = "refreshToken"
)

// contextKey はコンテキストキーの衝突を避けるための型。
type contextKey string

// userIDContextKey は認証済みユーザーIDのコンテキストキー。
const userIDContextKey contextKey = "userID"

// ContextWithUserID はユーザーIDを格納したコンテキストを返す。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext はコンテキストから認証済みユーザーIDを取り出す。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// NewAuthMiddleware はAccess Token Cookieを検証するミドルウェアを返す。
// 検証に成功した場合はユーザーIDをコンテキストに格納する。
// Refresh TokenをAccess Tokenとして使うことはできない。
func NewAuthMiddleware(codec *token.Codec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenNotFoundError())
				return
			}

			claims, err := codec.Verify(cookie.Value)
			if err != nil {
				// 期限切れも構造不正も401。クライアントは再発行を試みる
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}
			if claims.Class != token.ClassAccess {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			ctx := ContextWithUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
