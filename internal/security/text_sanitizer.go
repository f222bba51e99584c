package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はブラウザから取得したページ由来の文字列をログや監査記録に残せる形にする。
// bluemondayのStrictPolicyで全タグを除去し、空白を1つに畳む。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はタグを除去し、連続する空白を1つにまとめた文字列を返す。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.policy.Sanitize(raw)), " ")
}

// Snippet はTextの結果を先頭maxRunes文字までに切り詰める。
func (s *TextSanitizer) Snippet(raw string, maxRunes int) string {
	text := s.Text(raw)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes])
}
