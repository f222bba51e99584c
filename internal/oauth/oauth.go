// Package oauth はログイン済みの共有ブラウザセッションでOAuth認可URLを開き、
// 認可ボタンを押して認可コードを取り出すフローを提供する。
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/oauthrelay/internal/browser"
	"github.com/hitoshi/oauthrelay/internal/metrics"
	"github.com/hitoshi/oauthrelay/internal/model"
	"github.com/hitoshi/oauthrelay/internal/repository"
	"github.com/hitoshi/oauthrelay/internal/security"
)

// 失敗時のエラーメッセージ
const (
	ErrMsgNoAuthorizeButton = "Could not find authorize button on page"
	ErrMsgNoCode            = "Could not extract authorization code from response"
)

// authorizeSelectors は認可ボタンの候補。最初に表示されているものをクリックする。
var authorizeSelectors = []string{
	`button:has-text("Authorize")`,
	`button:has-text("Allow")`,
	`button:has-text("Approve")`,
	`button[type="submit"]:not(:disabled)`,
	`button.btn-primary`,
	`input[type="submit"][value*="Authorize"]`,
}

// Config はOAuth認可フローの設定。
type Config struct {
	// SettleDelay は認可ボタン押下後、コード抽出までの待機時間。
	SettleDelay time.Duration
}

// Flow はOAuth認可フローの実装。
type Flow struct {
	browser    browser.Context
	human      *browser.Humanizer
	sanitizer  *security.TextSanitizer
	attempts   repository.AttemptRepository
	metrics    metrics.Recorder
	logger     *slog.Logger
	cfg        Config
	strategies []Strategy
	now        func() time.Time
}

// NewFlow はFlowを生成する。attemptsがnilの場合は監査記録を行わない。
func NewFlow(b browser.Context, cfg Config, human *browser.Humanizer, attempts repository.AttemptRepository, rec metrics.Recorder, logger *slog.Logger) *Flow {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Flow{
		browser:    b,
		human:      human,
		sanitizer:  security.NewTextSanitizer(),
		attempts:   attempts,
		metrics:    rec,
		logger:     logger,
		cfg:        cfg,
		strategies: Strategies,
		now:        time.Now,
	}
}

// Authorize はoauthURLを開いて認可し、認可コードを返す。
// URLの検証は呼び出し元で済ませておくこと。
// 未ログインの場合はmodel.ErrNotLoggedInを返す。認可ボタンやコードが見つからない場合は
// Success=falseの結果を返し、ブラウザ操作の予期しない失敗のみerrorを返す。
// コードの取得に成功したページは開いたまま残す。
func (f *Flow) Authorize(ctx context.Context, oauthURL string) (*model.AuthorizationResult, error) {
	waitStart := time.Now()
	release, err := f.browser.Acquire(ctx)
	f.metrics.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	res := &model.AuthorizationResult{
		RequestID: uuid.New().String(),
		Timestamp: f.now().UTC(),
	}
	logger := f.logger.With(slog.String("authorization_id", res.RequestID))
	logger.Info("authorization started", slog.String("oauth_host", hostOf(oauthURL)))

	page, owned, err := f.page()
	if err != nil {
		return nil, err
	}

	err = f.run(ctx, page, oauthURL, res, logger)
	if (err != nil || !res.Success) && owned {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("failed to close authorization page", slog.String("error", cerr.Error()))
		}
	}
	f.metrics.ObserveFlow("authorize", time.Since(start))

	switch {
	case errors.Is(err, model.ErrNotLoggedIn):
		logger.Warn("authorization requires login", slog.String("url", page.URL()))
		f.metrics.RecordAuthorize(false, "")
		f.record(ctx, "not_logged_in", "", "")
		return nil, err
	case err != nil:
		logger.Error("authorization failed with unexpected error", slog.String("error", err.Error()))
		f.metrics.RecordAuthorize(false, "")
		f.record(ctx, "error", "", f.sanitizer.Snippet(err.Error(), 200))
		return nil, err
	}

	f.metrics.RecordAuthorize(res.Success, res.Strategy)
	if res.Success {
		logger.Info("authorization code extracted", slog.String("strategy", res.Strategy))
		f.record(ctx, "success", res.Strategy, "")
	} else {
		logger.Warn("authorization did not yield a code", slog.String("reason", res.Error))
		f.record(ctx, "failed", "", res.Error)
	}
	return res, nil
}

// page は既存の最初のページを返し、なければ新しく開く。ownedは新しく開いたかどうか。
func (f *Flow) page() (browser.Page, bool, error) {
	if p, ok := browser.FirstPage(f.browser); ok {
		return p, false, nil
	}
	p, err := f.browser.NewPage()
	if err != nil {
		return nil, false, fmt.Errorf("open authorization page: %w", err)
	}
	return p, true, nil
}

func (f *Flow) run(ctx context.Context, page browser.Page, oauthURL string, res *model.AuthorizationResult, logger *slog.Logger) error {
	if err := f.human.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}
	if err := page.Goto(oauthURL); err != nil {
		return err
	}
	if err := page.WaitForNetworkIdle(); err != nil {
		return err
	}
	if err := f.human.Pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return err
	}

	if strings.Contains(page.URL(), "login") {
		return model.ErrNotLoggedIn
	}

	selector, err := f.clickAuthorize(page)
	if err != nil {
		return err
	}
	if selector == "" {
		body, _ := page.BodyText()
		logger.Error("authorize button not found")
		logger.Debug("authorization page content", slog.String("body_snippet", f.sanitizer.Snippet(body, 500)))
		res.Error = ErrMsgNoAuthorizeButton
		return nil
	}
	logger.Info("clicked authorize button", slog.String("selector", selector))

	if err := page.WaitForNetworkIdle(); err != nil {
		return err
	}
	if err := browser.Sleep(ctx, f.cfg.SettleDelay); err != nil {
		return err
	}
	logger.Info("page settled after authorization", slog.String("url_host", hostOf(page.URL())))

	// 読み取りに失敗した部分は空のまま抽出を続け、URLなど取得済みの情報で判定する
	state, err := Snapshot(page)
	if err != nil {
		logger.Warn("page snapshot incomplete", slog.String("error", err.Error()))
	}
	code, strategy, ok := Extract(state, f.strategies)
	if !ok {
		res.Error = ErrMsgNoCode
		return nil
	}

	res.Success = true
	res.Code = code
	res.Strategy = strategy
	return nil
}

// clickAuthorize は表示されている最初の認可ボタンをクリックし、そのセレクタを返す。
// 見つからない場合は空文字列を返す。
func (f *Flow) clickAuthorize(page browser.Page) (string, error) {
	for _, sel := range authorizeSelectors {
		visible, err := page.IsVisible(sel)
		if err != nil || !visible {
			continue
		}
		if err := page.Click(sel); err != nil {
			f.logger.Debug("authorize button click failed",
				slog.String("selector", sel),
				slog.String("error", err.Error()),
			)
			continue
		}
		return sel, nil
	}
	return "", nil
}

// Snapshot はコード抽出に必要なページ状態を取得する。
// 要素の可視判定やテキスト取得に失敗したセレクタはスキップする。
// HTMLの取得に失敗した場合も、それまでに取得した状態をエラーとともに返す。
func Snapshot(page browser.Page) (PageState, error) {
	state := PageState{URL: page.URL()}

	for _, sel := range codeElementSelectors {
		visible, err := page.IsVisible(sel)
		if err != nil || !visible {
			continue
		}
		text, err := page.TextContent(sel)
		if err != nil {
			continue
		}
		state.Elements = append(state.Elements, Element{Selector: sel, Text: text})
	}

	content, err := page.Content()
	if err != nil {
		return state, fmt.Errorf("read page content: %w", err)
	}
	state.HTML = content
	return state, nil
}

// record は監査レコードを保存する。認可コードは保存しない。
func (f *Flow) record(ctx context.Context, outcome, strategy, detail string) {
	if f.attempts == nil {
		return
	}
	rec := &model.AttemptRecord{
		Kind:     model.AttemptKindAuthorize,
		Outcome:  outcome,
		Strategy: strategy,
		Detail:   detail,
	}
	if err := f.attempts.Create(context.WithoutCancel(ctx), rec); err != nil {
		f.logger.Warn("failed to record authorization attempt", slog.String("error", err.Error()))
	}
}

// hostOf はログ出力用にURLからスキームとホストのみを取り出す。クエリは認可コードを含みうるため残さない。
func hostOf(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "://"); i >= 0 {
		rest := raw[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			rest = rest[:j]
		}
		return raw[:i+3] + rest
	}
	return raw
}
