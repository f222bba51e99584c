package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/oauthrelay/internal/metrics"
	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	APIKey            string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.Recorder
	MetricsHandler    http.Handler

	// 表示モード（headless | visual）。visualの場合のみ /login/manual を公開する
	Mode string

	// ログイン
	LoginService LoginServiceInterface
	DefaultEmail string

	// OAuth認可
	AuthorizeService AuthorizeServiceInterface
	URLGuard         security.URLGuard

	// 状態
	StatusReporter StatusReporterInterface
	UpstreamProber UpstreamProberInterface

	// 監査ログ（nilの場合は /attempts が503を返す）
	AttemptLister AttemptListerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → APIKey → RateLimit(General)
//
// GET / と GET /metrics はAPIキー検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}

	healthHandler := NewHealthHandler(deps.Mode)
	loginHandler := NewLoginHandler(deps.LoginService, deps.DefaultEmail)
	oauthHandler := NewOAuthHandler(deps.AuthorizeService, deps.URLGuard)
	statusHandler := NewStatusHandler(deps.StatusReporter, deps.UpstreamProber)
	attemptHandler := NewAttemptHandler(deps.AttemptLister)

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: APIKey → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.APIKey))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ブラウザを操作するルート（フロー専用レート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.FlowMiddleware())

			r.Post("/login", loginHandler.Login)
			if deps.Mode == "visual" {
				r.Post("/login/manual", loginHandler.Manual)
			}
			r.Post("/oauth/authorize", oauthHandler.Authorize)
		})

		r.Get("/status", statusHandler.Status)
		r.Get("/status/upstream", statusHandler.Upstream)
		r.Get("/attempts", attemptHandler.List)
	})

	return r
}
