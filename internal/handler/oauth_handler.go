package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/model"
	"github.com/hitoshi/oauthrelay/internal/security"
)

// AuthorizeServiceInterface はOAuthハンドラーが必要とするフローのインターフェース。
type AuthorizeServiceInterface interface {
	// Authorize は認可URLを開いて承認し、認可コードを抽出する。
	Authorize(ctx context.Context, oauthURL string) (*model.AuthorizationResult, error)
}

// OAuthHandler はOAuth認可のHTTPハンドラー。
type OAuthHandler struct {
	service AuthorizeServiceInterface
	guard   security.URLGuard
}

// NewOAuthHandler はOAuthHandlerを生成する。
func NewOAuthHandler(service AuthorizeServiceInterface, guard security.URLGuard) *OAuthHandler {
	return &OAuthHandler{
		service: service,
		guard:   guard,
	}
}

// Authorize は認可URLをブラウザで承認し、結果を返す。
// 未ログインの場合は401、コードが得られなかった場合はsuccess:falseの200を返す。
// POST /oauth/authorize
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req model.AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	req.OAuthURL = strings.TrimSpace(req.OAuthURL)
	if req.OAuthURL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("oauth_url is required"))
		return
	}
	if err := h.guard.ValidateURL(req.OAuthURL); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError(err.Error()))
		return
	}

	result, err := h.service.Authorize(r.Context(), req.OAuthURL)
	if err != nil {
		handleFlowError(w, r, err)
		return
	}

	writeJSON(w, result)
}
