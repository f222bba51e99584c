package handler

import "net/http"

// サービス情報
const (
	ServiceName    = "Claude OAuth API"
	ServiceVersion = "1.0.0"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// HealthHandler は認証不要のヘルスチェックを返す。
type HealthHandler struct {
	mode string
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(mode string) *HealthHandler {
	return &HealthHandler{mode: mode}
}

// Root はサービスの稼働状態を返す。
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: ServiceVersion,
		Mode:    h.mode,
	})
}
