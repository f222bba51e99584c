// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel はLOG_LEVEL形式の文字列をslog.Levelに変換する。
// 未知の値はInfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// level はSetupDefaultで設定したグローバルロガーのレベル。設定読み込み後にSetLevelで差し替える。
var level slog.LevelVar

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
// 設定読み込み前に呼ばれるため、初期レベルはLOG_LEVEL環境変数から直接読む。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	level.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(Setup(w, &level))
}

// SetLevel はグローバルロガーのレベルを変更する。
// .env から読み込んだLOG_LEVELを反映するため、設定読み込み後に呼ぶ。
func SetLevel(s string) {
	level.Set(ParseLevel(s))
}
