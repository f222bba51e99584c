// Package cleanup は監査レコードの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過したattemptsレコードを定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/oauthrelay/internal/metrics"
)

// Pruner は保持期間切れレコードの削除を抽象化する。
// repository.AttemptRepositoryが満たす。
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した監査レコードの自動削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	pruner        Pruner
	logger        *slog.Logger
	metrics       metrics.Recorder
	now           func() time.Time
	RetentionDays int // 監査レコードの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(pruner Pruner, logger *slog.Logger, rec metrics.Recorder) *CleanupJob {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CleanupJob{
		pruner:        pruner,
		logger:        logger,
		metrics:       rec,
		now:           time.Now,
		RetentionDays: 30,
	}
}

// Run はcreated_atがRetentionDays日前より古い監査レコードを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().UTC().AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("audit cleanup failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("audit cleanup: %w", err)
	}

	j.metrics.RecordAttemptsPruned(deletedCount)
	j.logger.Info("audit cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行し、ctxの終了で戻る。
// 個々の実行エラーはログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("audit cleanup stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
