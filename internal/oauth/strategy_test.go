package oauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{name: "simple", url: "https://app.example.com/cb?code=abc123&state=xyz", want: "abc123", wantOK: true},
		{name: "last param", url: "https://app.example.com/cb?state=xyz&code=abc123", want: "abc123", wantOK: true},
		{name: "url decoded", url: "https://app.example.com/cb?code=a%2Bb%3Dc&state=1", want: "a+b=c", wantOK: true},
		{name: "fragment", url: "https://app.example.com/cb#code=frag-code&state=1", want: "frag-code", wantOK: true},
		{name: "stops at fragment", url: "https://app.example.com/cb?code=abc#section", want: "abc", wantOK: true},
		{name: "code_challenge is not code", url: "https://claude.ai/oauth/authorize?code_challenge=xyz&response_type=code", wantOK: false},
		{name: "prefers boundary match", url: "https://app.example.com/cb?authcode=wrong&code=right", want: "right", wantOK: true},
		{name: "substring fallback", url: "https://app.example.com/cb?authcode=fallback", want: "fallback", wantOK: true},
		{name: "empty value", url: "https://app.example.com/cb?code=&state=1", wantOK: false},
		{name: "no code", url: "https://claude.ai/new", wantOK: false},
		{name: "invalid escape kept raw", url: "https://app.example.com/cb?code=abc%zz", want: "abc%zz", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFromURL(PageState{URL: tt.url})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFromURL_TruncatesAtNextAmpersand(t *testing.T) {
	values := []string{"x", "short", "AbC-_123", strings.Repeat("z", 64)}
	for _, v := range values {
		got, ok := extractFromURL(PageState{URL: "https://cb.example.com/?code=" + v + "&state=s&code=second"})
		assert.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestExtractFromElements(t *testing.T) {
	got, ok := extractFromElements(PageState{Elements: []Element{
		{Selector: "code", Text: "short"},
		{Selector: "pre", Text: "   abcdefghijklmnop   "},
		{Selector: "div.code", Text: "zzzzzzzzzzzzzzzzzzzz"},
	}})
	assert.True(t, ok)
	assert.Equal(t, "abcdefghijklmnop", got)

	_, ok = extractFromElements(PageState{Elements: []Element{{Selector: "code", Text: "0123456789"}}})
	assert.False(t, ok, "exactly 10 chars is not long enough")
}

func TestExtractFromReadonlyInput(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{
			name:   "readonly text input",
			html:   `<form><input type="text" readonly value=" AUTH-CODE-123456 "></form>`,
			want:   "AUTH-CODE-123456",
			wantOK: true,
		},
		{
			name:   "password ignored",
			html:   `<input type="password" readonly value="supersecretpassword"><input readonly value="real-code-abcdef">`,
			want:   "real-code-abcdef",
			wantOK: true,
		},
		{
			name:   "not readonly",
			html:   `<input type="text" value="editable-value-123">`,
			wantOK: false,
		},
		{
			name:   "too short",
			html:   `<input readonly value="short">`,
			wantOK: false,
		},
		{
			name:   "empty html",
			html:   ``,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFromReadonlyInput(PageState{HTML: tt.html})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFromHTMLPatterns(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{name: "json style", html: `{"code": "abcdefghijklmnopqrstuvwx"}`, want: "abcdefghijklmnopqrstuvwx", wantOK: true},
		{name: "label style", html: `<p>Your code: ABCDEFGHIJKLMNOPQRST_-12</p>`, want: "ABCDEFGHIJKLMNOPQRST_-12", wantOK: true},
		{name: "authorization code label", html: `authorization_code: abcdefghijklmnopqrstu`, want: "abcdefghijklmnopqrstu", wantOK: true},
		{name: "bare long token", html: `<span>` + strings.Repeat("a1", 21) + `</span>`, want: strings.Repeat("a1", 21), wantOK: true},
		{name: "too short", html: `code: abc`, wantOK: false},
		{name: "nothing", html: `<p>Authorize this app?</p>`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFromHTMLPatterns(PageState{HTML: tt.html})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Order(t *testing.T) {
	state := PageState{
		URL:      "https://cb.example.com/?code=from-url",
		Elements: []Element{{Selector: "code", Text: "from-element-xyz"}},
		HTML:     `<input readonly value="from-input-value"> code: fromhtmlpattern123456789`,
	}

	code, strategy, ok := Extract(state, Strategies)
	assert.True(t, ok)
	assert.Equal(t, "from-url", code)
	assert.Equal(t, "url_query", strategy)

	state.URL = "https://cb.example.com/done"
	code, strategy, _ = Extract(state, Strategies)
	assert.Equal(t, "from-element-xyz", code)
	assert.Equal(t, "code_element", strategy)

	state.Elements = nil
	code, strategy, _ = Extract(state, Strategies)
	assert.Equal(t, "from-input-value", code)
	assert.Equal(t, "readonly_input_value", strategy)

	state.HTML = `<p>code: fromhtmlpattern123456789</p>`
	code, strategy, _ = Extract(state, Strategies)
	assert.Equal(t, "fromhtmlpattern123456789", code)
	assert.Equal(t, "html_pattern", strategy)

	_, _, ok = Extract(PageState{URL: "https://cb.example.com/"}, Strategies)
	assert.False(t, ok)
}
