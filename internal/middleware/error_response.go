package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/oauthrelay/internal/model"
)

// busyRetryAfterSeconds はブラウザが他のフローで使用中の場合に返すRetry-After秒数。
const busyRetryAfterSeconds = "5"

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 認証・入力検証・ブラウザ状態のエラーはすべてこの形で返し、フローの結果（success:false 等）とは区別する。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`

	// RequestID はRequestIDミドルウェアが割り当てたID。ログとの突き合わせに使う。
	RequestID string `json:"request_id,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// BROWSER_BUSYの場合は、ロック解放後の再試行を促すRetry-Afterを付ける。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	if apiErr.Code == model.ErrCodeBrowserBusy {
		w.Header().Set("Retry-After", busyRetryAfterSeconds)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Category:  apiErr.Category,
		Action:    apiErr.Action,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、呼び出し元には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
