package browser

import (
	"context"
	"time"
)

// Page はフロー層が必要とするページ操作の最小集合。
// セレクタはPlaywrightのセレクタ構文（text=、:has-text() など）を受け付け、
// 複数要素にマッチする場合は先頭要素を対象とする（FillEachを除く）。
type Page interface {
	// Goto は指定URLへ遷移し、loadイベントまで待つ。
	Goto(url string) error
	// WaitForNetworkIdle はネットワークが落ち着くまで待つ。
	WaitForNetworkIdle() error
	// URL は現在のURLを返す。
	URL() string
	// Fill は入力欄の値を置き換える。
	Fill(selector, value string) error
	// TypeSlowly は入力欄をクリックし、1文字ずつdelay間隔で入力する。
	TypeSlowly(selector, text string, delay time.Duration) error
	// Click は要素をクリックする。
	Click(selector string) error
	// WaitVisible は要素が表示されるまで最大timeout待つ。
	WaitVisible(selector string, timeout time.Duration) error
	// IsVisible は要素が現在表示されているかを返す。
	IsVisible(selector string) (bool, error)
	// TextContent は要素のテキストを返す。
	TextContent(selector string) (string, error)
	// FillEach はマッチした要素に先頭から1つずつvaluesを入力し、入力した数を返す。
	FillEach(selector string, values []string) (int, error)
	// Content はレンダリング済みHTML全体を返す。
	Content() (string, error)
	// BodyText はbody要素の表示テキストを返す。
	BodyText() (string, error)
	// MoveMouse はマウスカーソルを移動する。
	MoveMouse(x, y float64) error
	// Close はページを閉じる。
	Close() error
}

// Context は共有ブラウザコンテキストの抽象。
type Context interface {
	// Acquire はコンテキストの排他ロックを取得し、解放関数を返す。
	Acquire(ctx context.Context) (release func(), err error)
	// Pages は開いているページを作成順に返す。
	Pages() []Page
	// NewPage は新しいページを開く。
	NewPage() (Page, error)
	// Active はブラウザが起動済みで利用可能かを返す。
	Active() bool
}

// FirstPage はコンテキストで最初に開かれたページを返す。
func FirstPage(c Context) (Page, bool) {
	pages := c.Pages()
	if len(pages) == 0 {
		return nil, false
	}
	return pages[0], true
}

// Options はブラウザ起動設定。
type Options struct {
	// Headless はウィンドウを表示せずに起動するかどうか。
	Headless bool

	// Stealth は自動化検出の回避設定（引数、コンテキスト設定、初期化スクリプト）を有効にする。
	Stealth bool

	// InstallDriver は起動前にPlaywrightドライバとChromiumをインストールするかどうか。
	InstallDriver bool

	// ViewportWidth, ViewportHeight は非ステルス時のビューポートサイズ。
	ViewportWidth  int
	ViewportHeight int

	// UserAgent はコンテキストのUser-Agent。
	UserAgent string

	// Locale, TimezoneID はステルス時のロケールとタイムゾーン。
	Locale     string
	TimezoneID string

	// DefaultTimeout はページ操作のデフォルトタイムアウト。
	DefaultTimeout time.Duration
}

// Default values
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second
	DefaultLocale         = "en-US"
	DefaultTimezoneID     = "America/New_York"
)

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	if o.TimezoneID == "" {
		o.TimezoneID = DefaultTimezoneID
	}
	return o
}
