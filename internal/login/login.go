// Package login は共有ブラウザセッション上でのメール＋確認コードによるログインフローを提供する。
//
// ログインは2回の呼び出しで完結する。1回目はメールアドレスを送信して確認コード入力画面への
// 到達を確認し、2回目は同じメールアドレスで再度フォームを送信したうえで確認コードを1桁ずつ入力する。
// 成功時のページは開いたまま残し、後続のOAuth認可フローが同じセッションを再利用する。
package login

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/oauthrelay/internal/browser"
	"github.com/hitoshi/oauthrelay/internal/metrics"
	"github.com/hitoshi/oauthrelay/internal/model"
	"github.com/hitoshi/oauthrelay/internal/repository"
	"github.com/hitoshi/oauthrelay/internal/security"
)

// ログインページのセレクタ
const (
	emailSelector          = `input[type="email"]`
	continueSelector       = `button:has-text("Continue with email")`
	verificationSelector   = `text=verification code`
	codeInputSelector      = `input[inputmode="numeric"]`
	challengeFrameSelector = `iframe[title*="challenge"]`
)

// defaultPollInterval はチャレンジ画面の再判定間隔。
const defaultPollInterval = 500 * time.Millisecond

// 結果メッセージ
const (
	msgVerificationRequired = "Check your email for verification code"
	msgVerificationTimeout  = "Failed to reach verification screen"
	msgCodeInputTimeout     = "Failed to reach verification code input"
	msgSuccess              = "Successfully logged in to Claude"
	msgFailed               = "Login failed - please check credentials"
	msgChallenge            = "Security challenge detected. Automated login is blocked."
	msgChallengeManual      = "Security challenge detected. Please use /login/manual for manual login."
	msgManualOpened         = "Login page opened. Please complete login manually."
)

// manualInstructions は手動ログイン時に返す手順。
var manualInstructions = []string{
	"1. Look at the browser window (or connect via VNC on port 5900)",
	"2. Complete the login process manually",
	"3. Once logged in, use the /status endpoint to verify",
	"4. Then you can use /oauth/authorize for OAuth flows",
}

// Config はログインフローの設定。
type Config struct {
	// LoginURL はログインページのURL。
	LoginURL string
	// AuthenticatedPaths はログイン成功とみなすURLの部分文字列。
	AuthenticatedPaths []string
	// VerificationWaitTimeout は確認コード画面と入力欄の表示待ちの上限。
	VerificationWaitTimeout time.Duration
	// SettleDelay は確認コード入力後、URLを判定するまでの待機時間。
	SettleDelay time.Duration
	// ManualAvailable は /login/manual が利用可能か（非ヘッドレス時のみ）。
	ManualAvailable bool
}

// Flow はログインフローの実装。
type Flow struct {
	browser   browser.Context
	human     *browser.Humanizer
	sanitizer *security.TextSanitizer
	attempts  repository.AttemptRepository
	metrics   metrics.Recorder
	logger    *slog.Logger
	cfg       Config

	// pollInterval はawaitScreenで1回に待つ最大時間。
	pollInterval time.Duration
}

// NewFlow はFlowを生成する。attemptsがnilの場合は監査記録を行わない。
func NewFlow(b browser.Context, cfg Config, human *browser.Humanizer, attempts repository.AttemptRepository, rec metrics.Recorder, logger *slog.Logger) *Flow {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Flow{
		browser:   b,
		human:     human,
		sanitizer: security.NewTextSanitizer(),
		attempts:  attempts,
		metrics:   rec,
		logger:    logger,
		cfg:       cfg,

		pollInterval: defaultPollInterval,
	}
}

// Login はログインフローを1ステップ実行する。
// 確認コードがなければ1回目、あれば2回目として扱う。
// フローとして想定内の結果はLoginResultで返し、ブラウザ操作の予期しない失敗のみerrorを返す。
func (f *Flow) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	release, err := f.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	step := "request_code"
	if req.HasCode() {
		step = "submit_code"
	}
	logger := f.logger.With(slog.String("step", step), slog.String("email_domain", emailDomain(req.Email)))
	logger.Info("login started")

	page, err := f.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}

	var result *model.LoginResult
	if req.HasCode() {
		result, err = f.submitCode(ctx, page, req)
	} else {
		result, err = f.requestCode(ctx, page, req.Email)
	}

	if err != nil || result.Status != model.LoginStatusSuccess {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("failed to close login page", slog.String("error", cerr.Error()))
		}
	}
	f.metrics.ObserveFlow("login", time.Since(start))

	if err != nil {
		logger.Error("login failed with unexpected error", slog.String("error", err.Error()))
		f.metrics.RecordLogin(string(model.LoginStatusError))
		f.record(ctx, string(model.LoginStatusError), f.sanitizer.Snippet(err.Error(), 200))
		return nil, err
	}

	logger.Info("login finished",
		slog.String("status", string(result.Status)),
		slog.Bool("session_active", result.SessionActive),
	)
	f.metrics.RecordLogin(string(result.Status))
	f.record(ctx, string(result.Status), "")
	return result, nil
}

// OpenManual はログインページを新しいタブで開き、手動ログインの手順を返す。
// ページは開いたまま残す。
func (f *Flow) OpenManual(ctx context.Context) (*model.ManualLoginResult, error) {
	release, err := f.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := f.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open manual login page: %w", err)
	}
	if err := f.human.Pause(ctx, time.Second, 3*time.Second); err != nil {
		_ = page.Close()
		return nil, err
	}

	f.logger.Info("opening login page for manual login")
	if err := page.Goto(f.cfg.LoginURL); err != nil {
		_ = page.Close()
		return nil, err
	}

	return &model.ManualLoginResult{
		Status:       "opened",
		Message:      msgManualOpened,
		Instructions: append([]string(nil), manualInstructions...),
	}, nil
}

func (f *Flow) acquire(ctx context.Context) (func(), error) {
	waitStart := time.Now()
	release, err := f.browser.Acquire(ctx)
	f.metrics.ObserveLockWait(time.Since(waitStart))
	return release, err
}

// requestCode は1回目の呼び出し。メールアドレスを送信し、確認コード画面への到達を確認する。
func (f *Flow) requestCode(ctx context.Context, page browser.Page, email string) (*model.LoginResult, error) {
	if err := f.submitEmail(ctx, page, email); err != nil {
		return nil, err
	}

	reached, err := f.awaitScreen(ctx, page, verificationSelector)
	if err != nil {
		return nil, err
	}
	switch reached {
	case screenChallenge:
		return f.challengeResult(), nil
	case screenTimeout:
		f.logDiagnostics(page, "verification screen not reached")
		return result(model.LoginStatusError, msgVerificationTimeout, false), nil
	}
	return result(model.LoginStatusVerificationRequired, msgVerificationRequired, false), nil
}

// submitCode は2回目の呼び出し。フォームを再送信し、確認コードを1桁ずつ入力する。
func (f *Flow) submitCode(ctx context.Context, page browser.Page, req model.LoginRequest) (*model.LoginResult, error) {
	if err := f.submitEmail(ctx, page, req.Email); err != nil {
		return nil, err
	}

	reached, err := f.awaitScreen(ctx, page, codeInputSelector)
	if err != nil {
		return nil, err
	}
	switch reached {
	case screenChallenge:
		return f.challengeResult(), nil
	case screenTimeout:
		f.logDiagnostics(page, "verification code input not reached")
		return result(model.LoginStatusError, msgCodeInputTimeout, false), nil
	}

	digits := strings.Split(req.VerificationCode, "")
	filled, err := page.FillEach(codeInputSelector, digits)
	if err != nil {
		return nil, fmt.Errorf("enter verification code: %w", err)
	}
	if filled < len(digits) {
		f.logger.Warn("fewer code inputs than digits",
			slog.Int("inputs", filled),
			slog.Int("digits", len(digits)),
		)
	}

	if err := page.WaitForNetworkIdle(); err != nil {
		return nil, err
	}
	if err := browser.Sleep(ctx, f.cfg.SettleDelay); err != nil {
		return nil, err
	}

	if IsAuthenticatedURL(page.URL(), f.cfg.AuthenticatedPaths) {
		return result(model.LoginStatusSuccess, msgSuccess, true), nil
	}
	f.logger.Info("login did not reach authenticated area", slog.String("url", page.URL()))
	return result(model.LoginStatusFailed, msgFailed, false), nil
}

// submitEmail はログインページを開き、メールアドレスを入力して送信する。
// ステルス時は人間らしい待機とキー入力間隔を挟む。
func (f *Flow) submitEmail(ctx context.Context, page browser.Page, email string) error {
	if err := f.human.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}
	if f.human.Enabled() {
		if err := page.MoveMouse(f.human.MousePoint()); err != nil {
			return fmt.Errorf("move mouse: %w", err)
		}
	}

	if err := page.Goto(f.cfg.LoginURL); err != nil {
		return err
	}
	if err := page.WaitForNetworkIdle(); err != nil {
		return err
	}
	if err := f.human.Pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return err
	}

	if f.human.Enabled() {
		if err := page.TypeSlowly(emailSelector, email, f.human.KeyDelay()); err != nil {
			return err
		}
	} else if err := page.Fill(emailSelector, email); err != nil {
		return err
	}

	if err := f.human.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}
	if err := page.Click(continueSelector); err != nil {
		return err
	}
	return f.human.Pause(ctx, 2*time.Second, 4*time.Second)
}

// screen は送信後に到達した画面。
type screen int

const (
	screenReached screen = iota
	screenChallenge
	screenTimeout
)

// awaitScreen はselectorの表示とチャレンジ画面の出現をVerificationWaitTimeoutまで交互に確認する。
// チャレンジは送信から遅れて現れることがあるため、待機中も繰り返し判定する。
func (f *Flow) awaitScreen(ctx context.Context, page browser.Page, selector string) (screen, error) {
	deadline := time.Now().Add(f.cfg.VerificationWaitTimeout)
	for {
		if f.challengeDetected(page) {
			return screenChallenge, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return screenTimeout, nil
		}

		slice := min(f.pollInterval, remaining)
		waitStart := time.Now()
		if err := page.WaitVisible(selector, slice); err == nil {
			return screenReached, nil
		}
		if err := browser.Sleep(ctx, slice-time.Since(waitStart)); err != nil {
			return screenTimeout, err
		}
	}
}

// challengeDetected はボット判定のチャレンジ画面が表示されているかを判定する。
func (f *Flow) challengeDetected(page browser.Page) bool {
	if strings.Contains(page.URL(), "challenge") {
		return true
	}
	visible, err := page.IsVisible(challengeFrameSelector)
	if err != nil {
		f.logger.Debug("challenge frame check failed", slog.String("error", err.Error()))
		return false
	}
	return visible
}

func (f *Flow) challengeResult() *model.LoginResult {
	f.logger.Warn("security challenge detected")
	msg := msgChallenge
	if f.cfg.ManualAvailable {
		msg = msgChallengeManual
	}
	return result(model.LoginStatusChallengeDetected, msg, false)
}

// logDiagnostics はページ本文の先頭をデバッグログに残す。
func (f *Flow) logDiagnostics(page browser.Page, msg string) {
	body, err := page.BodyText()
	if err != nil {
		return
	}
	f.logger.Debug(msg,
		slog.String("url", page.URL()),
		slog.String("body_snippet", f.sanitizer.Snippet(body, 500)),
	)
}

// record は監査レコードを保存する。保存失敗はログのみでフローの結果には影響させない。
func (f *Flow) record(ctx context.Context, outcome, detail string) {
	if f.attempts == nil {
		return
	}
	rec := &model.AttemptRecord{Kind: model.AttemptKindLogin, Outcome: outcome, Detail: detail}
	if err := f.attempts.Create(context.WithoutCancel(ctx), rec); err != nil {
		f.logger.Warn("failed to record login attempt", slog.String("error", err.Error()))
	}
}

// IsAuthenticatedURL はURLがログイン後の領域を指しているかを判定する。
func IsAuthenticatedURL(url string, paths []string) bool {
	for _, p := range paths {
		if p != "" && strings.Contains(url, p) {
			return true
		}
	}
	return false
}

func result(status model.LoginStatus, msg string, active bool) *model.LoginResult {
	return &model.LoginResult{Status: status, Message: msg, SessionActive: active}
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
