package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const instanceColumns = `id, job_name, job_parameters, parameters_hash, create_time, version`

// SQLJobInstanceRepository は JobInstance インターフェースの SQL データベース実装です。
type SQLJobInstanceRepository struct {
	store
}

// CreateJobInstance は新しい JobInstance をデータベースに保存します。
// (job_name, parameters_hash) の一意制約に違反した場合は exception.ErrDuplicateInstance を返します。
func (r *SQLJobInstanceRepository) CreateJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	instance := core.NewJobInstance(jobName, params)
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, exception.NewBatchError(module, "JobParameters のシリアライズに失敗しました", err, false, false)
	}

	_, err = r.db.ExecContext(ctx, r.q(`
    INSERT INTO job_instances (id, job_name, job_parameters, parameters_hash, create_time, version)
    VALUES ($1, $2, $3, $4, $5, $6)`),
		instance.ID,
		instance.JobName,
		string(paramsJSON),
		instance.ParametersHash,
		instance.CreateTime,
		instance.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, exception.NewBatchError(module,
				fmt.Sprintf("JobInstance (JobName: %s, Parameters: %s) は既に存在します", jobName, params),
				errors.Join(exception.ErrDuplicateInstance, err), false, false)
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の保存に失敗しました", instance.ID), err, exception.IsTemporary(err), false)
	}

	logger.Debugf("JobInstance (ID: %s, JobName: %s) を保存しました。", instance.ID, instance.JobName)
	return instance, nil
}

// FindJobInstance はジョブ名とパラメータのハッシュで JobInstance を検索します。見つからない場合は nil, nil を返します。
func (r *SQLJobInstanceRepository) FindJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
    SELECT `+instanceColumns+`
    FROM job_instances
    WHERE job_name = $1 AND parameters_hash = $2`), jobName, params.Hash())

	instance, err := scanJobInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (JobName: %s) の検索に失敗しました", jobName), err, exception.IsTemporary(err), false)
	}
	return instance, nil
}

// FindJobInstanceByID は指定された ID の JobInstance をデータベースから取得します。
func (r *SQLJobInstanceRepository) FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
    SELECT `+instanceColumns+`
    FROM job_instances
    WHERE id = $1`), instanceID)

	instance, err := scanJobInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) が見つかりませんでした", instanceID), exception.ErrJobInstanceNotFound, false, false)
		}
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の取得に失敗しました", instanceID), err, exception.IsTemporary(err), false)
	}
	return instance, nil
}

// GetJobInstances は指定されたジョブ名の JobInstance を作成順に返します。
func (r *SQLJobInstanceRepository) GetJobInstances(ctx context.Context, jobName string) ([]*core.JobInstance, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
    SELECT `+instanceColumns+`
    FROM job_instances
    WHERE job_name = $1
    ORDER BY create_time, id`), jobName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("ジョブ '%s' の JobInstance 取得に失敗しました", jobName), err, exception.IsTemporary(err), false)
	}
	defer rows.Close()

	var instances []*core.JobInstance
	for rows.Next() {
		instance, err := scanJobInstance(rows)
		if err != nil {
			return nil, exception.NewBatchError(module, "JobInstance のスキャンに失敗しました", err, false, false)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "JobInstance 取得後の行処理中にエラーが発生しました", err, false, false)
	}
	return instances, nil
}

// GetJobNames はリポジトリに存在する全てのジョブ名を返します。
func (r *SQLJobInstanceRepository) GetJobNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT job_name FROM job_instances ORDER BY job_name`)
	if err != nil {
		return nil, exception.NewBatchError(module, "ジョブ名の取得に失敗しました", err, exception.IsTemporary(err), false)
	}
	defer rows.Close()

	var jobNames []string
	for rows.Next() {
		var jobName string
		if err := rows.Scan(&jobName); err != nil {
			return nil, exception.NewBatchError(module, "ジョブ名のスキャンに失敗しました", err, false, false)
		}
		jobNames = append(jobNames, jobName)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "ジョブ名取得後の行処理中にエラーが発生しました", err, false, false)
	}

	logger.Debugf("%d 件のジョブ名を取得しました。", len(jobNames))
	return jobNames, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobInstance(row rowScanner) (*core.JobInstance, error) {
	instance := &core.JobInstance{}
	var paramsJSON string
	if err := row.Scan(
		&instance.ID,
		&instance.JobName,
		&paramsJSON,
		&instance.ParametersHash,
		&instance.CreateTime,
		&instance.Version,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &instance.Parameters); err != nil {
		return nil, fmt.Errorf("JobInstance (ID: %s) の JobParameters のデコードに失敗しました: %w", instance.ID, err)
	}
	return instance, nil
}

var _ job.JobInstance = (*SQLJobInstanceRepository)(nil)
