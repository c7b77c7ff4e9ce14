// Package purge は退会済みアカウントの物理削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した退会済みユーザーと関連する
// user_oauth_accountsを日次バッチで削除する。
// user_oauth_accountsはCASCADE削除で自動的に処理される。
// 保持期間内のユーザーは再ログインによる復帰が可能なため削除しない。
package purge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PurgeJob は保持期間を超過した退会済みユーザーの物理削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type PurgeJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 退会後の保持日数（デフォルト: 30）
}

// NewPurgeJob は新しいPurgeJobを生成する。
// デフォルトの保持日数は30日。
func NewPurgeJob(db Executor, logger *slog.Logger) *PurgeJob {
	return &PurgeJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過した退会済みユーザーを削除する。
// deleted_atがRetentionDays日前より古いユーザーをDELETEする。
// user_oauth_accountsはCASCADE削除により自動的に削除される。
// 削除後は同じ外部アカウントでのログインが新規登録として扱われる。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *PurgeJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM users WHERE deleted_at IS NOT NULL AND deleted_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("退会アカウント削除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("退会アカウント削除の実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("退会アカウント削除ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
