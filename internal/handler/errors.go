package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nodap/nodap-server/internal/middleware"
	"github.com/nodap/nodap-server/internal/model"
)

// statusForCode はAPIエラーコードからHTTPステータスコードを決定する。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeAuthCodeRejected,
		model.ErrCodeTokenNotFound,
		model.ErrCodeInvalidToken,
		model.ErrCodeRefreshExpired:
		return http.StatusUnauthorized
	case model.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeNicknameDuplicated:
		return http.StatusConflict
	case model.ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーは詳細をログにのみ残し、500を返す。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, statusForCode(apiErr.Code), apiErr)
		return
	}

	slog.ErrorContext(r.Context(), "internal error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}
