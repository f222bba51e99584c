// Package browsertest はbrowser.Pageとbrowser.Contextのテスト用フェイク実装を提供する。
// 実ブラウザを起動せずにログイン・OAuthフローとハンドラーを検証するために使う。
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/oauthrelay/internal/browser"
	"github.com/hitoshi/oauthrelay/internal/model"
)

// Page はスクリプト可能なフェイクページ。
// 公開フィールドで挙動を設定し、記録用フィールドで操作を検証する。
type Page struct {
	mu sync.Mutex

	// CurrentURL は現在のURL。Gotoで更新される。
	CurrentURL string
	// Redirects はGoto先URLから遷移後URLへの対応。未登録なら指定URLのまま。
	Redirects map[string]string
	// Visible は表示中とみなすセレクタ。
	Visible map[string]bool
	// VisibleAfter はIsVisibleで指定回数確認された後に表示されるセレクタ。
	// 操作から遅れて現れる要素を表す。
	VisibleAfter map[string]int
	// Texts はTextContentが返すセレクタごとのテキスト。
	Texts map[string]string
	// Boxes はFillEachで入力可能な要素数。
	Boxes map[string]int
	// ClickNavigations はクリック後に遷移するURL。
	ClickNavigations map[string]string
	// FillEachNavigation はFillEach後に遷移するURL（空なら遷移しない）。
	FillEachNavigation string
	// HTML, Body はContentとBodyTextが返す値。
	HTML string
	Body string

	// GotoErr, ContentErr が設定されている場合は該当操作でエラーを返す。
	GotoErr    error
	ContentErr error

	// 記録
	Visited    []string
	Filled     map[string]string
	Typed      map[string]string
	Clicked    []string
	Each       map[string][]string
	Waited     []string
	MouseMoves int
	Closed     bool

	checks map[string]int
}

var _ browser.Page = (*Page)(nil)

// NewPage は指定URLを表示しているフェイクページを生成する。
func NewPage(url string) *Page {
	return &Page{CurrentURL: url}
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Visited = append(p.Visited, url)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	if to, ok := p.Redirects[url]; ok {
		p.CurrentURL = to
		return nil
	}
	p.CurrentURL = url
	return nil
}

func (p *Page) WaitForNetworkIdle() error { return nil }

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) Fill(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Filled == nil {
		p.Filled = make(map[string]string)
	}
	p.Filled[selector] = value
	return nil
}

func (p *Page) TypeSlowly(selector, text string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Typed == nil {
		p.Typed = make(map[string]string)
	}
	p.Typed[selector] = text
	return nil
}

func (p *Page) Click(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Clicked = append(p.Clicked, selector)
	if to, ok := p.ClickNavigations[selector]; ok {
		p.CurrentURL = to
	}
	return nil
}

func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waited = append(p.Waited, selector)
	if !p.Visible[selector] {
		return fmt.Errorf("wait for %s: timeout %s exceeded", selector, timeout)
	}
	return nil
}

func (p *Page) IsVisible(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.checks == nil {
		p.checks = make(map[string]int)
	}
	p.checks[selector]++
	if n, ok := p.VisibleAfter[selector]; ok && p.checks[selector] > n {
		return true, nil
	}
	return p.Visible[selector], nil
}

func (p *Page) TextContent(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text, ok := p.Texts[selector]
	if !ok {
		return "", errors.New("element not found: " + selector)
	}
	return text, nil
}

func (p *Page) FillEach(selector string, values []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := min(len(values), p.Boxes[selector])
	if p.Each == nil {
		p.Each = make(map[string][]string)
	}
	p.Each[selector] = append([]string(nil), values[:n]...)
	if p.FillEachNavigation != "" {
		p.CurrentURL = p.FillEachNavigation
	}
	return n, nil
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

func (p *Page) BodyText() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Body, nil
}

func (p *Page) MoveMouse(_, _ float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.MouseMoves++
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	return nil
}

// IsClosed はCloseが呼ばれたかを返す。
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Closed
}

// Context はフェイクのブラウザコンテキスト。
// 排他ロックは本物のbrowser.Lockを使う。
type Context struct {
	mu   sync.Mutex
	lock *browser.Lock

	// OpenPages は開いているページ（作成順）。閉じられたページはPagesから除外される。
	OpenPages []*Page
	// NextPages はNewPageが順に返すページ。尽きたらabout:blankのページを生成する。
	NextPages []*Page
	// NewPageErr が設定されている場合、NewPageはエラーを返す。
	NewPageErr error
	// Inactive がtrueの場合、ブラウザ停止中として振る舞う。
	Inactive bool

	// Created はNewPageで生成したページ数。
	Created int
}

var _ browser.Context = (*Context)(nil)

// NewContext はフェイクコンテキストを生成する。
func NewContext(open ...*Page) *Context {
	return &Context{lock: browser.NewLock(), OpenPages: open}
}

func (c *Context) Acquire(ctx context.Context) (func(), error) {
	if !c.Active() {
		return nil, model.ErrBrowserUnavailable
	}
	return c.lock.Acquire(ctx)
}

func (c *Context) Pages() []browser.Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pages []browser.Page
	for _, p := range c.OpenPages {
		if !p.IsClosed() {
			pages = append(pages, p)
		}
	}
	return pages
}

func (c *Context) NewPage() (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}
	var p *Page
	if len(c.NextPages) > 0 {
		p, c.NextPages = c.NextPages[0], c.NextPages[1:]
	} else {
		p = NewPage("about:blank")
	}
	c.OpenPages = append(c.OpenPages, p)
	c.Created++
	return p, nil
}

func (c *Context) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.Inactive
}
