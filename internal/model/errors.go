package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, browser, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeNotLoggedIn        = "NOT_LOGGED_IN"
	ErrCodeBrowserBusy        = "BROWSER_BUSY"
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	ErrCodeAuditDisabled      = "AUDIT_DISABLED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// フロー層が返す番兵エラー。ハンドラー層でAPIErrorに変換する。
var (
	// ErrNotLoggedIn は共有ブラウザセッションが未ログインであることを示す。
	ErrNotLoggedIn = errors.New("browser session is not logged in")
	// ErrBrowserBusy はブラウザの排他ロックを待つ間に呼び出し元が離脱したことを示す。
	ErrBrowserBusy = errors.New("browser session is busy")
	// ErrBrowserUnavailable はブラウザが起動していない、または終了済みであることを示す。
	ErrBrowserUnavailable = errors.New("browser session is not available")
)

// NewUnauthorizedError はAPIキー不正エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Invalid API key",
		Category: "auth",
		Action:   "X-API-Keyヘッダーに正しいAPIキーを指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "公開されている http:// または https:// のOAuth認可URLを指定してください。",
	}
}

// NewNotLoggedInError は未ログインエラーを生成する。
func NewNotLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLoggedIn,
		Message:  "Not logged in. Please use /login endpoint first.",
		Category: "auth",
		Action:   "/login でログインを完了してから再度お試しください。",
	}
}

// NewBrowserBusyError はブラウザ使用中エラーを生成する。
func NewBrowserBusyError() *APIError {
	return &APIError{
		Code:     ErrCodeBrowserBusy,
		Message:  "ブラウザセッションは他のリクエストが使用中です。",
		Category: "browser",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBrowserUnavailableError はブラウザ未起動エラーを生成する。
func NewBrowserUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBrowserUnavailable,
		Message:  "ブラウザセッションが利用できません。",
		Category: "browser",
		Action:   "サービスを再起動してください。",
	}
}

// NewAuditDisabledError は監査ログ無効エラーを生成する。
func NewAuditDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeAuditDisabled,
		Message:  "監査ログは無効です。",
		Category: "system",
		Action:   "DATABASE_URLを設定して migrate を実行してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、呼び出し元には一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
