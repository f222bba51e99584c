// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/model"
)

// writeJSON はステータス200のJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleFlowError はフロー層から返されたエラーを適切なHTTPステータスコードに変換する。
// 想定外のエラーは詳細をログにのみ記録し、500を返す。
func handleFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr):
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
	case errors.Is(err, model.ErrNotLoggedIn):
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotLoggedInError())
	case errors.Is(err, model.ErrBrowserBusy):
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewBrowserBusyError())
	case errors.Is(err, model.ErrBrowserUnavailable):
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewBrowserUnavailableError())
	default:
		slog.Error("internal server error",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeValidation, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeNotLoggedIn:
		return http.StatusUnauthorized
	case model.ErrCodeBrowserBusy, model.ErrCodeBrowserUnavailable, model.ErrCodeAuditDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
