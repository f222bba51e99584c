// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/oauthrelay/internal/model"
)

// AttemptRepository はフロー実行結果の監査レコードの永続化インターフェース。
type AttemptRepository interface {
	// Create は監査レコードを作成する。IDとCreatedAtが空の場合は補完する。
	Create(ctx context.Context, record *model.AttemptRecord) error

	// ListRecent は新しい順に最大limit件の監査レコードを取得する。
	ListRecent(ctx context.Context, limit int) ([]*model.AttemptRecord, error)

	// DeleteOlderThan はcutoffより古い監査レコードを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
