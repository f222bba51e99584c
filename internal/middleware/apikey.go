// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/oauthrelay/internal/model"
)

// APIKeyHeader はAPIキーを受け取るリクエストヘッダー名。
const APIKeyHeader = "X-API-Key"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	clientIDContextKey     = contextKey("client_id")
	requestIDContextKey    = contextKey("request_id")
	requestEntryContextKey = contextKey("request_entry")
)

// NewAPIKeyMiddleware はX-API-Keyヘッダーを設定済みのAPIキーと定数時間で比較するミドルウェアを返す。
// 一致しない場合は401 Unauthorizedを返す。
// 認証済みリクエストにはキーのフィンガープリントをクライアントIDとして注入する。
func NewAPIKeyMiddleware(apiKey string) func(next http.Handler) http.Handler {
	expected := []byte(apiKey)
	clientID := Fingerprint(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				slog.Warn("api key rejected",
					slog.String("path", r.URL.Path),
					slog.Bool("header_present", provided != ""),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := ContextWithClientID(r.Context(), clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Fingerprint はAPIキーからログやレート制限に使える識別子を生成する。
// キー自体はログに出さない。
func Fingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:6])
}

// ClientIDFromContext はリクエストコンテキストからクライアントIDを取得する。
// APIキーミドルウェアを通過したリクエストでのみ有効。
func ClientIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(clientIDContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("client ID not found in context")
	}
	return id, nil
}

// ContextWithClientID はコンテキストにクライアントIDを注入する。
// ロギングミドルウェアの内側であれば、ログにもクライアントIDが出力される。
func ContextWithClientID(ctx context.Context, id string) context.Context {
	if entry, ok := ctx.Value(requestEntryContextKey).(*requestEntry); ok {
		entry.clientID = id
	}
	return context.WithValue(ctx, clientIDContextKey, id)
}
