// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// 有効期限を過ぎたセッション行は認証には使われないが、放置すると
// テーブルが肥大化するため定期バッチで削除する。
package cleanup

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

// SessionCleanupJob は期限切れセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SessionCleanupJob struct {
	db     Executor
	logger *slog.Logger
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(db Executor, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		db:     db,
		logger: logger,
	}
}

// Run は有効期限を過ぎたセッションを削除する。
// 期限判定はDBのnow()ではなくGo側の時刻を渡す。PostgreSQLとSQLiteの
// 両方で同じSQLを使うため。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `DELETE FROM sessions WHERE expires_at < $1`
	result, err := j.db.ExecContext(ctx, query, start)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
