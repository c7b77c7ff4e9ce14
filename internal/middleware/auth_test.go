package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nodap/nodap-server/internal/token"
)

func testCodec() *token.Codec {
	return token.NewCodec(token.Config{
		Secret:        "test-secret",
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 14 * 24 * time.Hour,
	})
}

func authTestHandler(t *testing.T, wantUserID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("コンテキストからユーザーIDを取得できない: %v", err)
		}
		if userID != wantUserID {
			t.Errorf("userID = %q, want %q", userID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidAccessToken(t *testing.T) {
	codec := testCodec()
	access, err := codec.Issue("user-1", token.ClassAccess)
	if err != nil {
		t.Fatalf("トークン発行に失敗: %v", err)
	}

	handler := NewAuthMiddleware(codec)(authTestHandler(t, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingCookie(t *testing.T) {
	handler := NewAuthMiddleware(testCodec())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("認証なしでハンドラーが呼ばれた")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "AUTH_TOKEN_NOT_FOUND" {
		t.Errorf("code = %q, want %q", body.Code, "AUTH_TOKEN_NOT_FOUND")
	}
}

func TestAuthMiddleware_MalformedToken(t *testing.T) {
	handler := NewAuthMiddleware(testCodec())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("不正トークンでハンドラーが呼ばれた")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	codec := testCodec()
	past := time.Now().Add(-24 * time.Hour)
	expired, err := codec.WithClock(func() time.Time { return past }).Issue("user-1", token.ClassAccess)
	if err != nil {
		t.Fatalf("トークン発行に失敗: %v", err)
	}

	handler := NewAuthMiddleware(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("期限切れトークンでハンドラーが呼ばれた")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: expired})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	// Refresh TokenをAccess Tokenとして提示しても認証できない
	codec := testCodec()
	refresh, err := codec.Issue("user-1", token.ClassRefresh)
	if err != nil {
		t.Fatalf("トークン発行に失敗: %v", err)
	}

	handler := NewAuthMiddleware(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Refresh Tokenでハンドラーが呼ばれた")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: refresh})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "AUTH_INVALID_TOKEN" {
		t.Errorf("code = %q, want %q", body.Code, "AUTH_INVALID_TOKEN")
	}
}

func TestUserIDFromContext_NotSet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("未設定のコンテキストでエラーが返らなかった")
	}
}

func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "user-9")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext returned error: %v", err)
	}
	if userID != "user-9" {
		t.Errorf("userID = %q, want %q", userID, "user-9")
	}
}
