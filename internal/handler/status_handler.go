package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/oauthrelay/internal/model"
)

// StatusReporterInterface はセッション状態を返すインターフェース。
type StatusReporterInterface interface {
	Report() model.SessionStatus
}

// UpstreamProberInterface は上流サービスの到達性を確認するインターフェース。
type UpstreamProberInterface interface {
	Probe(ctx context.Context) model.UpstreamProbe
}

// StatusHandler はセッション状態のHTTPハンドラー。
type StatusHandler struct {
	reporter StatusReporterInterface
	prober   UpstreamProberInterface
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(reporter StatusReporterInterface, prober UpstreamProberInterface) *StatusHandler {
	return &StatusHandler{
		reporter: reporter,
		prober:   prober,
	}
}

// Status は共有ブラウザセッションの状態を返す。
// GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.reporter.Report())
}

// Upstream は上流サービスへの到達性を返す。到達できない場合もreachable:falseの200を返す。
// GET /status/upstream
func (h *StatusHandler) Upstream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.prober.Probe(r.Context()))
}
