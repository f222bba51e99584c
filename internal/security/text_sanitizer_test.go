package security

import (
	"strings"
	"testing"
)

func TestTextSanitizer_Text(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "空文字列", input: "", want: ""},
		{name: "プレーンテキスト", input: "Enter verification code", want: "Enter verification code"},
		{name: "タグ除去", input: "<div><p>Authorize</p> <b>app</b></div>", want: "Authorize app"},
		{name: "script除去", input: "ok<script>alert(1)</script>", want: "ok"},
		{name: "空白の畳み込み", input: "a\n\n   b\t c", want: "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Snippet(t *testing.T) {
	s := NewTextSanitizer()

	long := strings.Repeat("あ", 600)
	got := s.Snippet(long, 500)
	if n := len([]rune(got)); n != 500 {
		t.Errorf("Snippet rune count = %d, want 500", n)
	}

	if got := s.Snippet("short", 500); got != "short" {
		t.Errorf("Snippet(short) = %q", got)
	}
	if got := s.Snippet("no limit", 0); got != "no limit" {
		t.Errorf("Snippet with 0 limit = %q", got)
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	input := "<p>Could not find</p> <button>Authorize</button>"
	first := s.Text(input)
	if second := s.Text(first); second != first {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
