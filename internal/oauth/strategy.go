package oauth

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// minElementCodeLength より長いテキストのみを認可コードとして扱う。
const minElementCodeLength = 10

// Element は可視要素のセレクタとテキスト。
type Element struct {
	Selector string
	Text     string
}

// PageState は認可ボタン押下後のページのスナップショット。
type PageState struct {
	URL      string
	HTML     string
	Elements []Element // codeElementSelectorsの順で、表示されていたもののみ
}

// Strategy は認可コード抽出戦略。
type Strategy struct {
	Name    string
	Extract func(PageState) (string, bool)
}

// Strategies は抽出戦略を優先順に並べたもの。最初にヒットした戦略の結果を採用する。
var Strategies = []Strategy{
	{Name: "url_query", Extract: extractFromURL},
	{Name: "code_element", Extract: extractFromElements},
	{Name: "readonly_input_value", Extract: extractFromReadonlyInput},
	{Name: "html_pattern", Extract: extractFromHTMLPatterns},
}

// codeElementSelectors はコードを表示しうる要素のセレクタ。
var codeElementSelectors = []string{
	"code",
	"pre",
	".authorization-code",
	`input[readonly]:not([type="password"])`,
	"span.code",
	"div.code",
}

// codePatterns はHTML全体に対する正規表現。先頭から順に試す。
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`code["\s:]+([A-Za-z0-9_-]{20,})`),
	regexp.MustCompile(`authorization.code["\s:]+([A-Za-z0-9_-]{20,})`),
	regexp.MustCompile(`>([A-Za-z0-9_-]{40,})<`),
}

// Extract は戦略を順に適用し、最初に得られたコードと戦略名を返す。
func Extract(state PageState, strategies []Strategy) (code, strategy string, ok bool) {
	for _, s := range strategies {
		if c, found := s.Extract(state); found {
			return c, s.Name, true
		}
	}
	return "", "", false
}

// extractFromURL はURL中の code= パラメータの値を次の & または # まで取り出し、URLデコードして返す。
// クエリ区切り（? & # ;）直後の code= を優先し、なければ最初の code= を使う。
func extractFromURL(state PageState) (string, bool) {
	raw := state.URL
	idx := paramIndex(raw, "code=")
	if idx < 0 {
		return "", false
	}

	value := raw[idx+len("code="):]
	if end := strings.IndexAny(value, "&#"); end >= 0 {
		value = value[:end]
	}
	if value == "" {
		return "", false
	}
	if decoded, err := url.QueryUnescape(value); err == nil {
		value = decoded
	}
	return value, true
}

func paramIndex(s, key string) int {
	first := -1
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], key)
		if i < 0 {
			break
		}
		pos := off + i
		if first < 0 {
			first = pos
		}
		if pos > 0 && strings.ContainsRune("?&#;", rune(s[pos-1])) {
			return pos
		}
		off = pos + len(key)
	}
	return first
}

// extractFromElements は可視要素のうち、トリム後の長さがminElementCodeLengthを超える最初のテキストを返す。
func extractFromElements(state PageState) (string, bool) {
	for _, el := range state.Elements {
		text := strings.TrimSpace(el.Text)
		if len(text) > minElementCodeLength {
			return text, true
		}
	}
	return "", false
}

// extractFromReadonlyInput はHTML中の読み取り専用（パスワード以外）inputのvalue属性を返す。
func extractFromReadonlyInput(state PageState) (string, bool) {
	if state.HTML == "" {
		return "", false
	}
	doc, err := html.Parse(strings.NewReader(state.HTML))
	if err != nil {
		return "", false
	}

	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Input {
			if v, ok := readonlyValue(n); ok {
				found = v
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if !walk(doc) {
		return "", false
	}
	return found, true
}

func readonlyValue(n *html.Node) (string, bool) {
	var readonly bool
	var typ, value string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "readonly":
			readonly = true
		case "type":
			typ = strings.ToLower(a.Val)
		case "value":
			value = strings.TrimSpace(a.Val)
		}
	}
	if !readonly || typ == "password" || len(value) <= minElementCodeLength {
		return "", false
	}
	return value, true
}

// extractFromHTMLPatterns はHTML全体に正規表現を順に適用する。
func extractFromHTMLPatterns(state PageState) (string, bool) {
	for _, re := range codePatterns {
		if m := re.FindStringSubmatch(state.HTML); m != nil {
			return m[1], true
		}
	}
	return "", false
}
