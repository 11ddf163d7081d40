package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// SQLStepExecutionRepository は StepExecution インターフェースの SQL データベース実装です。
type SQLStepExecutionRepository struct {
	store
}

// AppendStepResult は実行中の JobExecution にステップ結果を追加します。
// JobExecution の行をロックして状態を確認し、記録順を表す seq を採番します。
func (r *SQLStepExecutionRepository) AppendStepResult(ctx context.Context, executionID string, result core.StepResult) error {
	err := r.withTx(ctx, func(tx database.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, r.q(`
    SELECT status FROM job_executions WHERE id = $1 FOR UPDATE`), executionID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrUnknownExecution, false, false)
			}
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) のロックに失敗しました", executionID), err, exception.IsTemporary(err), false)
		}
		if core.BatchStatus(status) != core.BatchStatusStarted {
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) は既に %s で終了しています", executionID, status), exception.ErrUnknownExecution, false, false)
		}

		var seq int
		if err := tx.QueryRowContext(ctx, r.q(`
    SELECT COALESCE(MAX(seq), 0) FROM step_executions WHERE job_execution_id = $1`), executionID).Scan(&seq); err != nil {
			return exception.NewBatchError(module, "ステップ結果の採番に失敗しました", err, exception.IsTemporary(err), false)
		}

		if _, err := tx.ExecContext(ctx, r.q(`
    INSERT INTO step_executions (job_execution_id, seq, step_name, status, failure_detail, start_time, end_time)
    VALUES ($1, $2, $3, $4, $5, $6, $7)`),
			executionID,
			seq+1,
			result.StepName,
			string(result.Status),
			sql.NullString{String: result.FailureDetail, Valid: result.FailureDetail != ""},
			result.StartTime,
			result.EndTime,
		); err != nil {
			return exception.NewBatchError(module, fmt.Sprintf("ステップ '%s' の結果の保存に失敗しました", result.StepName), err, exception.IsTemporary(err), false)
		}

		if _, err := tx.ExecContext(ctx, r.q(`
    UPDATE job_executions SET last_updated = $1, version = version + 1 WHERE id = $2`), time.Now(), executionID); err != nil {
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の更新に失敗しました", executionID), err, exception.IsTemporary(err), false)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debugf("ステップ結果 (JobExecution ID: %s, Step: %s, Status: %s) を保存しました。", executionID, result.StepName, result.Status)
	return nil
}

// FindStepResults は JobExecution のステップ結果を記録順に返します。
func (r *SQLStepExecutionRepository) FindStepResults(ctx context.Context, executionID string) ([]core.StepResult, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM job_executions WHERE id = $1`), executionID).Scan(&count); err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, exception.IsTemporary(err), false)
	}
	if count == 0 {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrJobExecutionNotFound, false, false)
	}
	return loadStepResults(ctx, r.store, executionID)
}

func loadStepResults(ctx context.Context, s store, executionID string) ([]core.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
    SELECT step_name, status, failure_detail, start_time, end_time
    FROM step_executions
    WHERE job_execution_id = $1
    ORDER BY seq`), executionID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) のステップ結果の取得に失敗しました", executionID), err, exception.IsTemporary(err), false)
	}
	defer rows.Close()

	results := []core.StepResult{}
	for rows.Next() {
		var result core.StepResult
		var status string
		var detail sql.NullString
		if err := rows.Scan(&result.StepName, &status, &detail, &result.StartTime, &result.EndTime); err != nil {
			return nil, exception.NewBatchError(module, "ステップ結果のスキャンに失敗しました", err, false, false)
		}
		result.Status = core.BatchStatus(status)
		result.FailureDetail = detail.String
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "ステップ結果取得後の行処理中にエラーが発生しました", err, false, false)
	}
	return results, nil
}

var _ job.StepExecution = (*SQLStepExecutionRepository)(nil)
