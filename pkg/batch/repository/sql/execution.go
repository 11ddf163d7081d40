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

const executionColumns = `id, job_instance_id, job_name, status, start_time, end_time, create_time, last_updated, version`

// SQLJobExecutionRepository は JobExecution インターフェースの SQL データベース実装です。
type SQLJobExecutionRepository struct {
	store
}

// HasSuccessfulExecution は JobInstance に COMPLETED の JobExecution があるかを返します。
func (r *SQLJobExecutionRepository) HasSuccessfulExecution(ctx context.Context, instanceID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.q(`
    SELECT COUNT(*) FROM job_executions
    WHERE job_instance_id = $1 AND status = $2`), instanceID, string(core.BatchStatusCompleted)).Scan(&count)
	if err != nil {
		return false, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の実行履歴の確認に失敗しました", instanceID), err, exception.IsTemporary(err), false)
	}
	return count > 0, nil
}

// CreateJobExecution は受付判定を行った上で STARTED 状態の JobExecution を作成します。
// JobInstance の行をロックしてから成功済み・実行中の JobExecution を再確認するため、
// 同じ JobInstance に対する並行した呼び出しのうち受け付けられるのは1つだけです。
func (r *SQLJobExecutionRepository) CreateJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error) {
	var execution *core.JobExecution
	err := r.withTx(ctx, func(tx database.Tx) error {
		instance := &core.JobInstance{}
		err := tx.QueryRowContext(ctx, r.q(`
    SELECT id, job_name FROM job_instances WHERE id = $1 FOR UPDATE`), instanceID).Scan(&instance.ID, &instance.JobName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) が見つかりませんでした", instanceID), exception.ErrJobInstanceNotFound, false, false)
			}
			return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) のロックに失敗しました", instanceID), err, exception.IsTemporary(err), false)
		}

		rows, err := tx.QueryContext(ctx, r.q(`
    SELECT status FROM job_executions
    WHERE job_instance_id = $1 AND status IN ($2, $3)`),
			instanceID, string(core.BatchStatusCompleted), string(core.BatchStatusStarted))
		if err != nil {
			return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の実行履歴の確認に失敗しました", instanceID), err, exception.IsTemporary(err), false)
		}
		var completed, running bool
		for rows.Next() {
			var status string
			if err := rows.Scan(&status); err != nil {
				rows.Close()
				return exception.NewBatchError(module, "JobExecution のステータスのスキャンに失敗しました", err, false, false)
			}
			switch core.BatchStatus(status) {
			case core.BatchStatusCompleted:
				completed = true
			case core.BatchStatusStarted:
				running = true
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return exception.NewBatchError(module, "JobExecution のステータス取得後の行処理中にエラーが発生しました", err, false, false)
		}
		if completed {
			return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) は既に完了しています", instanceID), exception.ErrAlreadyCompleted, false, false)
		}
		if running {
			return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の JobExecution が実行中です", instanceID), exception.ErrExecutionRunning, false, false)
		}

		execution = core.NewJobExecution(instance)
		_, err = tx.ExecContext(ctx, r.q(`
    INSERT INTO job_executions (`+executionColumns+`)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`),
			execution.ID,
			execution.JobInstanceID,
			execution.JobName,
			string(execution.Status),
			execution.StartTime,
			sql.NullTime{},
			execution.CreateTime,
			execution.LastUpdated,
			execution.Version,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の JobExecution が実行中です", instanceID),
					errors.Join(exception.ErrExecutionRunning, err), false, false)
			}
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の保存に失敗しました", execution.ID), err, exception.IsTemporary(err), false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debugf("JobExecution (ID: %s, JobInstance ID: %s) を保存しました。", execution.ID, instanceID)
	return execution, nil
}

// FinalizeJobExecution は STARTED の JobExecution を終了状態にします。
// 既に同じステータスで終了している場合は何もしません。
func (r *SQLJobExecutionRepository) FinalizeJobExecution(ctx context.Context, executionID string, status core.BatchStatus, endTime time.Time) error {
	if !status.IsFinished() {
		return exception.NewBatchError(module, fmt.Sprintf("終了状態ではないステータス '%s' は指定できません", status), exception.ErrConsistency, false, false)
	}

	res, err := r.db.ExecContext(ctx, r.q(`
    UPDATE job_executions
    SET status = $1, end_time = $2, last_updated = $3, version = version + 1
    WHERE id = $4 AND status = $5`),
		string(status), endTime, time.Now(), executionID, string(core.BatchStatusStarted))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) を %s にできません", executionID, status),
				errors.Join(exception.ErrConsistency, err), false, false)
		}
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の更新に失敗しました", executionID), err, exception.IsTemporary(err), false)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchError(module, "更新件数の取得に失敗しました", err, false, false)
	}
	if affected == 1 {
		logger.Debugf("JobExecution (ID: %s) を %s で終了しました。", executionID, status)
		return nil
	}

	// STARTED でなかった場合は現在の状態で判定する
	var current string
	err = r.db.QueryRowContext(ctx, r.q(`SELECT status FROM job_executions WHERE id = $1`), executionID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrUnknownExecution, false, false)
		}
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, exception.IsTemporary(err), false)
	}
	if core.BatchStatus(current) == status {
		logger.Debugf("JobExecution (ID: %s) は既に %s で終了しています。", executionID, status)
		return nil
	}
	return exception.NewBatchError(module,
		fmt.Sprintf("JobExecution (ID: %s) は既に %s で終了しているため %s にできません", executionID, current, status),
		exception.ErrConsistency, false, false)
}

// FindJobExecutionByID は指定された ID の JobExecution をステップ結果とともに取得します。
func (r *SQLJobExecutionRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
    SELECT `+executionColumns+`
    FROM job_executions
    WHERE id = $1`), executionID)

	execution, err := scanJobExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrJobExecutionNotFound, false, false)
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, exception.IsTemporary(err), false)
	}
	if execution.StepResults, err = loadStepResults(ctx, r.store, executionID); err != nil {
		return nil, err
	}
	return execution, nil
}

// FindJobExecutionsByJobInstance は JobInstance に属する JobExecution を作成順に返します。
func (r *SQLJobExecutionRepository) FindJobExecutionsByJobInstance(ctx context.Context, instanceID string) ([]*core.JobExecution, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
    SELECT `+executionColumns+`
    FROM job_executions
    WHERE job_instance_id = $1
    ORDER BY create_time, id`), instanceID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の JobExecution 取得に失敗しました", instanceID), err, exception.IsTemporary(err), false)
	}

	var executions []*core.JobExecution
	for rows.Next() {
		execution, err := scanJobExecution(rows)
		if err != nil {
			rows.Close()
			return nil, exception.NewBatchError(module, "JobExecution のスキャンに失敗しました", err, false, false)
		}
		executions = append(executions, execution)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "JobExecution 取得後の行処理中にエラーが発生しました", err, false, false)
	}

	// 行の読み出しを終えてからステップ結果を取得する (接続を1本しか持たない場合に備える)
	for _, execution := range executions {
		if execution.StepResults, err = loadStepResults(ctx, r.store, execution.ID); err != nil {
			return nil, err
		}
	}
	return executions, nil
}

// FindLatestJobExecution は JobInstance の最新の JobExecution を返します。存在しない場合は nil, nil です。
func (r *SQLJobExecutionRepository) FindLatestJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error) {
	executions, err := r.FindJobExecutionsByJobInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if len(executions) == 0 {
		return nil, nil
	}
	return executions[len(executions)-1], nil
}

func scanJobExecution(row rowScanner) (*core.JobExecution, error) {
	execution := &core.JobExecution{StepResults: []core.StepResult{}}
	var status string
	var endTime sql.NullTime
	if err := row.Scan(
		&execution.ID,
		&execution.JobInstanceID,
		&execution.JobName,
		&status,
		&execution.StartTime,
		&endTime,
		&execution.CreateTime,
		&execution.LastUpdated,
		&execution.Version,
	); err != nil {
		return nil, err
	}
	execution.Status = core.BatchStatus(status)
	if endTime.Valid {
		end := endTime.Time
		execution.EndTime = &end
	}
	return execution, nil
}

var _ job.JobExecution = (*SQLJobExecutionRepository)(nil)
