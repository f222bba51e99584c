package model

import "time"

// AuthorizeRequest は POST /oauth/authorize のリクエストボディ。
type AuthorizeRequest struct {
	OAuthURL string `json:"oauth_url"`
}

// AuthorizationResult はOAuth認可フローの結果。
// 呼び出し元へ直接返し、認可コード自体は永続化しない。
type AuthorizationResult struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Strategy は認可コードを取り出した抽出戦略の名前。監査ログ用でレスポンスには含めない。
	Strategy string `json:"-"`
}

// SessionStatus は GET /status のレスポンス。
type SessionStatus struct {
	BrowserActive bool    `json:"browser_active"`
	PagesOpen     int     `json:"pages_open"`
	CurrentURL    *string `json:"current_url"`
	LoggedIn      bool    `json:"logged_in"`
	Mode          string  `json:"mode"`
}

// UpstreamProbe は GET /status/upstream のレスポンス。
type UpstreamProbe struct {
	URL        string  `json:"url"`
	Reachable  bool    `json:"reachable"`
	StatusCode int     `json:"status_code,omitempty"`
	Assessment string  `json:"assessment"`
	LatencyMs  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}
