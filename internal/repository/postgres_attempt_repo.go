package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/oauthrelay/internal/model"
)

// ListRecentの上限件数。
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// PostgresAttemptRepo はPostgreSQLを使用した監査レコードリポジトリ。
type PostgresAttemptRepo struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresAttemptRepo はPostgresAttemptRepoを生成する。
func NewPostgresAttemptRepo(db DBTX) *PostgresAttemptRepo {
	return &PostgresAttemptRepo{db: db, now: time.Now}
}

// Create は監査レコードを作成する。
func (r *PostgresAttemptRepo) Create(ctx context.Context, record *model.AttemptRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attempts (id, kind, outcome, strategy, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, string(record.Kind), record.Outcome, record.Strategy, record.Detail, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

// ListRecent は新しい順に監査レコードを取得する。
// limitが0以下ならDefaultListLimit、MaxListLimitを超える場合はMaxListLimitに丸める。
func (r *PostgresAttemptRepo) ListRecent(ctx context.Context, limit int) ([]*model.AttemptRecord, error) {
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, outcome, strategy, detail, created_at
		 FROM attempts
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	records := make([]*model.AttemptRecord, 0, limit)
	for rows.Next() {
		rec := &model.AttemptRecord{}
		var kind string
		if err := rows.Scan(&rec.ID, &kind, &rec.Outcome, &rec.Strategy, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		rec.Kind = model.AttemptKind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return records, nil
}

// DeleteOlderThan はcutoffより古い監査レコードを削除する。
func (r *PostgresAttemptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attempts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return n, nil
}

// ClampLimit はListRecentに渡す件数を許容範囲に丸める。
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// compile-time interface check
var _ AttemptRepository = (*PostgresAttemptRepo)(nil)
