package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/oauthrelay/internal/login"
	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/model"
)

// LoginServiceInterface はログインハンドラーが必要とするフローのインターフェース。
type LoginServiceInterface interface {
	// Login はログインフローを1ステップ実行する。
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error)
	// OpenManual は手動ログイン用にログインページを開く。
	OpenManual(ctx context.Context) (*model.ManualLoginResult, error)
}

// LoginHandler はログイン関連のHTTPハンドラー。
type LoginHandler struct {
	service      LoginServiceInterface
	defaultEmail string
}

// NewLoginHandler はLoginHandlerを生成する。
// defaultEmailはリクエストでemailが省略された場合に使用する。
func NewLoginHandler(service LoginServiceInterface, defaultEmail string) *LoginHandler {
	return &LoginHandler{
		service:      service,
		defaultEmail: defaultEmail,
	}
}

// Login はログインフローを1ステップ進める。
// POST /login
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.VerificationCode = strings.TrimSpace(req.VerificationCode)
	if req.Email == "" {
		req.Email = h.defaultEmail
	}
	if err := login.Validate(req.Email, req.VerificationCode); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleFlowError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// Manual はログインページを開き、手動ログインの手順を返す。非ヘッドレス時のみルーティングされる。
// POST /login/manual
func (h *LoginHandler) Manual(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.OpenManual(r.Context())
	if err != nil {
		handleFlowError(w, r, err)
		return
	}

	writeJSON(w, result)
}
