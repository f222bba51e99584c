package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hitoshi/oauthrelay/internal/model"
	"github.com/playwright-community/playwright-go"
)

// Session はプロセス共有のブラウザセッション。
// Playwrightドライバ、Chromium、1つのブラウザコンテキストを所有する。
type Session struct {
	mu      sync.RWMutex
	lock    *Lock
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    Options
	logger  *slog.Logger
	closed  bool
}

var _ Context = (*Session)(nil)

// Start はPlaywrightドライバを起動し、Chromiumと共有コンテキストを生成する。
// 途中で失敗した場合は生成済みのリソースを解放してからエラーを返す。
func Start(opts Options, logger *slog.Logger) (*Session, error) {
	opts = opts.withDefaults()

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.InstallDriver {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x76696577))
	width, height := viewportFor(opts, rnd)

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs(opts, width, height),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(contextOptions(opts, width, height))
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))

	if opts.Stealth {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
			_ = bctx.Close()
			_ = browser.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to add init script: %w", err)
		}
	}

	logger.Info("browser started",
		slog.Bool("headless", opts.Headless),
		slog.Bool("stealth", opts.Stealth),
		slog.Int("viewport_width", width),
		slog.Int("viewport_height", height),
	)

	return &Session{
		lock:    NewLock(),
		pw:      pw,
		browser: browser,
		context: bctx,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Acquire はセッションの排他ロックを取得する。
// セッションが終了済みの場合はmodel.ErrBrowserUnavailableを返す。
func (s *Session) Acquire(ctx context.Context) (func(), error) {
	if !s.Active() {
		return nil, model.ErrBrowserUnavailable
	}
	return s.lock.Acquire(ctx)
}

// Pages は開いているページを作成順に返す。
func (s *Session) Pages() []Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}
	raw := s.context.Pages()
	pages := make([]Page, 0, len(raw))
	for _, p := range raw {
		pages = append(pages, &playwrightPage{page: p})
	}
	return pages
}

// NewPage は共有コンテキストに新しいページを開く。
func (s *Session) NewPage() (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, model.ErrBrowserUnavailable
	}
	p, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: p}, nil
}

// FirstPage は最初に開かれたページを返す。
func (s *Session) FirstPage() (Page, bool) {
	return FirstPage(s)
}

// Active はブラウザが接続中かどうかを返す。
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.closed && s.browser.IsConnected()
}

// Close はコンテキスト、ブラウザ、ドライバの順に終了する。複数回呼んでも安全。
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}

	s.logger.Info("browser closed")
	return errors.Join(errs...)
}
