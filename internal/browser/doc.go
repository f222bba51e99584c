// Package browser は共有ヘッドレスブラウザセッションを管理する。
//
// プロセス全体で1つのPlaywrightドライバ、1つのChromium、1つのブラウザコンテキスト
// （Cookie/ストレージ）を保持する。Startで起動しCloseで破棄する明示的な所有モデルで、
// app層がdeferでCloseを保証する。
//
// ログインフローとOAuth認可フローは同じコンテキスト上のページを操作するため、
// ページ操作の前に必ずAcquireで排他ロックを取得する。ロック待ちはリクエストの
// context.Contextに従い、呼び出し元が離脱した場合はブラウザに触れずに戻る。
//
// フロー層が依存するのはPageとContextの小さなインターフェースのみで、
// テストではbrowsertestパッケージのフェイク実装を使う。
package browser
