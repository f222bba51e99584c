// Package status は共有ブラウザセッションの状態と上流サービスへの到達性を報告する。
package status

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/oauthrelay/internal/browser"
	"github.com/hitoshi/oauthrelay/internal/login"
	"github.com/hitoshi/oauthrelay/internal/model"
)

// Reporter はセッション状態を報告する。
// ページのURLを読むだけなので排他ロックは取得しない。
type Reporter struct {
	browser   browser.Context
	authPaths []string
	mode      string
}

// NewReporter はReporterを生成する。bがnilの場合はブラウザ未起動として報告する。
func NewReporter(b browser.Context, authPaths []string, mode string) *Reporter {
	return &Reporter{browser: b, authPaths: authPaths, mode: mode}
}

// Report は現在のセッション状態を返す。
// ログイン判定は最初に開かれたページのURLのみで行う。
func (r *Reporter) Report() model.SessionStatus {
	st := model.SessionStatus{Mode: r.mode}
	if r.browser == nil || !r.browser.Active() {
		return st
	}
	st.BrowserActive = true

	pages := r.browser.Pages()
	st.PagesOpen = len(pages)
	if len(pages) == 0 {
		return st
	}

	current := pages[0].URL()
	st.CurrentURL = &current
	st.LoggedIn = login.IsAuthenticatedURL(current, r.authPaths)
	return st
}

// Prober は上流サービス（ログインページのオリジン）への到達性を確認する。
type Prober struct {
	client *http.Client
	target string
	logger *slog.Logger
}

// NewProber はProberを生成する。clientにはSSRF防止付きのクライアントを渡す想定。
func NewProber(client *http.Client, loginURL string, logger *slog.Logger) (*Prober, error) {
	target, err := originOf(loginURL)
	if err != nil {
		return nil, err
	}
	return &Prober{client: client, target: target, logger: logger}, nil
}

// Probe は上流オリジンにGETリクエストを送り、応答の有無とレイテンシを返す。
// HTTPステータスに関わらず応答があればreachableとし、ステータスの分類をassessmentに入れる。
func (p *Prober) Probe(ctx context.Context) model.UpstreamProbe {
	res := model.UpstreamProbe{URL: p.target}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		res.Error = err.Error()
		res.Assessment = string(AssessmentUnreachable)
		return res
	}
	req.Header.Set("User-Agent", "oauthrelay-probe/1.0")

	resp, err := p.client.Do(req)
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		p.logger.Warn("upstream probe failed",
			slog.String("url", p.target),
			slog.String("error", err.Error()),
		)
		res.Error = err.Error()
		res.Assessment = string(AssessmentUnreachable)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	res.Reachable = true
	res.StatusCode = resp.StatusCode
	res.Assessment = string(ClassifyStatus(resp.StatusCode))
	return res
}

// Assessment はプローブ応答のHTTPステータスの分類。
type Assessment string

const (
	// AssessmentOK は2xx/3xxで、ログインページが配信されている状態。
	AssessmentOK Assessment = "ok"
	// AssessmentBlocked は401/403で、ボット判定やIP制限で拒否されている可能性が高い状態。
	AssessmentBlocked Assessment = "blocked"
	// AssessmentRateLimited は429。
	AssessmentRateLimited Assessment = "rate_limited"
	// AssessmentUnavailable は5xxで、上流が障害中の状態。
	AssessmentUnavailable Assessment = "unavailable"
	// AssessmentUnreachable は応答が得られなかった状態。
	AssessmentUnreachable Assessment = "unreachable"
	// AssessmentUnknown はその他のステータス。
	AssessmentUnknown Assessment = "unknown"
)

// ClassifyStatus はHTTPステータスコードをプローブ結果の分類に変換する。
func ClassifyStatus(statusCode int) Assessment {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return AssessmentOK
	case statusCode == 401 || statusCode == 403:
		return AssessmentBlocked
	case statusCode == 429:
		return AssessmentRateLimited
	case statusCode >= 500:
		return AssessmentUnavailable
	default:
		return AssessmentUnknown
	}
}

// Target は確認対象のURLを返す。
func (p *Prober) Target() string {
	return p.target
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid login URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid login URL: %q", raw)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}
