package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/model"
	"github.com/hitoshi/oauthrelay/internal/repository"
)

// AttemptListerInterface は監査レコードの取得インターフェース。
type AttemptListerInterface interface {
	ListRecent(ctx context.Context, limit int) ([]*model.AttemptRecord, error)
}

// AttemptHandler は監査レコードのHTTPハンドラー。
type AttemptHandler struct {
	lister AttemptListerInterface
}

// NewAttemptHandler はAttemptHandlerを生成する。listerがnilの場合は監査ログ無効として503を返す。
func NewAttemptHandler(lister AttemptListerInterface) *AttemptHandler {
	return &AttemptHandler{lister: lister}
}

type attemptsResponse struct {
	Attempts []*model.AttemptRecord `json:"attempts"`
	Count    int                    `json:"count"`
}

// List は新しい順に監査レコードを返す。
// GET /attempts?limit=N
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewAuditDisabledError())
		return
	}

	limit := repository.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = repository.ClampLimit(n)
	}

	records, err := h.lister.ListRecent(r.Context(), limit)
	if err != nil {
		handleFlowError(w, r, err)
		return
	}
	if records == nil {
		records = []*model.AttemptRecord{}
	}

	writeJSON(w, attemptsResponse{Attempts: records, Count: len(records)})
}
