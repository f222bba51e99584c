package browser

import (
	"fmt"
	"math/rand/v2"

	"github.com/playwright-community/playwright-go"
)

// ステルス時のビューポート基準値。±stealthViewportJitterの範囲でランダム化する。
const (
	stealthBaseWidth      = 1920
	stealthBaseHeight     = 1080
	stealthViewportJitter = 100
)

// NYC
const (
	stealthLatitude  = 40.7128
	stealthLongitude = -74.0060
)

// stealthScript は自動化の痕跡を隠すページ初期化スクリプト。
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

Object.defineProperty(navigator, 'plugins', {
  get: () => [
    { 0: { type: "application/x-google-chrome-pdf", suffixes: "pdf", description: "Portable Document Format" },
      description: "Portable Document Format", filename: "internal-pdf-viewer", length: 1, name: "Chrome PDF Plugin" },
    { 0: { type: "application/pdf", suffixes: "pdf", description: "" },
      description: "", filename: "mhjfbmdgcfjbbpaeojofohoefgiehjai", length: 1, name: "Chrome PDF Viewer" }
  ]
});

const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
  parameters.name === 'notifications'
    ? Promise.resolve({ state: Notification.permission })
    : originalQuery(parameters)
);

window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };

const originalDebug = console.debug;
console.debug = function(...args) {
  if (args[0] && typeof args[0] === 'string' && args[0].includes('HeadlessChrome')) {
    return;
  }
  return originalDebug.apply(console, args);
};
`

// stealthHeaders はステルス時に全リクエストへ付与する追加ヘッダー。
var stealthHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept-Encoding": "gzip, deflate, br",
}

// viewportFor はOptionsに応じたビューポートサイズを返す。
// ステルス時は基準サイズから±100pxの範囲でランダムに決める。
func viewportFor(opts Options, rnd *rand.Rand) (int, int) {
	if !opts.Stealth {
		return opts.ViewportWidth, opts.ViewportHeight
	}
	jitter := func() int { return rnd.IntN(2*stealthViewportJitter+1) - stealthViewportJitter }
	return stealthBaseWidth + jitter(), stealthBaseHeight + jitter()
}

// launchArgs はChromiumの起動引数を返す。
func launchArgs(opts Options, width, height int) []string {
	args := []string{"--no-sandbox", "--disable-setuid-sandbox"}
	if opts.Stealth {
		args = append(args,
			"--disable-blink-features=AutomationControlled",
			"--disable-features=IsolateOrigins,site-per-process",
			fmt.Sprintf("--window-size=%d,%d", width, height),
		)
	}
	return args
}

// contextOptions はブラウザコンテキストの生成オプションを返す。
func contextOptions(opts Options, width, height int) playwright.BrowserNewContextOptions {
	co := playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: width, Height: height},
		UserAgent: playwright.String(opts.UserAgent),
	}
	if !opts.Stealth {
		return co
	}

	co.Locale = playwright.String(opts.Locale)
	co.TimezoneId = playwright.String(opts.TimezoneID)
	co.Permissions = []string{"geolocation"}
	co.Geolocation = &playwright.Geolocation{Latitude: stealthLatitude, Longitude: stealthLongitude}
	co.ColorScheme = playwright.ColorSchemeLight
	co.DeviceScaleFactor = playwright.Float(1)
	co.HasTouch = playwright.Bool(false)
	co.IsMobile = playwright.Bool(false)
	co.JavaScriptEnabled = playwright.Bool(true)
	co.ExtraHttpHeaders = stealthHeaders
	return co
}
