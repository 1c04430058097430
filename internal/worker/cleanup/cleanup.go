// Package cleanup は長期間使われていないクライアントストレージの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超えて更新されていないエントリを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays はクライアントストレージの保持日数。
const DefaultRetentionDays = 90

// StaleEntryDeleter は指定時刻より前に更新されたエントリを削除する。
type StaleEntryDeleter interface {
	DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過したクライアントストレージの削除ジョブ。
// 削除対象がなくてもエラーにならない冪等な処理。
type CleanupJob struct {
	repo          StaleEntryDeleter
	logger        *slog.Logger
	RetentionDays int
	now           func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。retentionDaysが0以下の場合は既定値を使う。
func NewCleanupJob(repo StaleEntryDeleter, retentionDays int, logger *slog.Logger) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &CleanupJob{
		repo:          repo,
		logger:        logger,
		RetentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run は保持期間を超過したエントリを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.repo.DeleteUpdatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("クライアントストレージのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("クライアントストレージのクリーンアップに失敗: %w", err)
	}

	j.logger.Info("クライアントストレージのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return nil
}

// Start はinterval間隔でRunを実行する。起動直後に1回実行する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)
}
