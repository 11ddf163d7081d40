package joboperator

import (
	"context"
	"fmt"
	"time"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/job/joblauncher"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_operator"

// JobProvider はジョブ名から JobDefinition と JobParametersIncrementer を取得します。
// factory.JobFactory はこのインターフェースを満たします。
type JobProvider interface {
	CreateJob(jobName string) (core.JobDefinition, error)
	GetJobParametersIncrementer(jobName string) (core.JobParametersIncrementer, error)
}

// DefaultJobOperator は JobOperator インターフェースのデフォルト実装です。
// JobRepository を使用してバッチメタデータを参照し、ジョブの起動は JobLauncher に委譲します。
type DefaultJobOperator struct {
	jobRepository job.JobRepository
	jobProvider   JobProvider
	jobLauncher   joblauncher.JobLauncher
}

// DefaultJobOperator が JobOperator インターフェースを満たすことを確認します。
var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator は新しい DefaultJobOperator のインスタンスを作成します。
func NewDefaultJobOperator(jobRepository job.JobRepository, jobProvider JobProvider, jobLauncher joblauncher.JobLauncher) *DefaultJobOperator {
	return &DefaultJobOperator{
		jobRepository: jobRepository,
		jobProvider:   jobProvider,
		jobLauncher:   jobLauncher,
	}
}

// Start は登録されたジョブを指定されたパラメータで起動します。
func (o *DefaultJobOperator) Start(ctx context.Context, jobName string, params core.JobParameters) (*core.ExecutionOutcome, error) {
	logger.Infof("JobOperator: Start メソッドが呼び出されたよ。Job Name: %s, Parameters: %s", jobName, params)

	def, err := o.jobProvider.CreateJob(jobName)
	if err != nil {
		logger.Errorf("Job '%s' の作成に失敗しました: %v", jobName, err)
		return nil, exception.NewBatchError(module, fmt.Sprintf("Job '%s' の作成に失敗しました", jobName), err, false, false)
	}
	return o.jobLauncher.Run(ctx, def, params)
}

// StartNextInstance は直近の JobInstance のパラメータを JobParametersIncrementer に渡し、次の JobInstance を起動します。
// JobInstance がまだ存在しない場合は空のパラメータから生成します。
func (o *DefaultJobOperator) StartNextInstance(ctx context.Context, jobName string) (*core.ExecutionOutcome, error) {
	logger.Infof("JobOperator: StartNextInstance メソッドが呼び出されたよ。Job Name: %s", jobName)

	inc, err := o.jobProvider.GetJobParametersIncrementer(jobName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Job '%s' の JobParametersIncrementer の取得に失敗しました", jobName), err, false, false)
	}
	if inc == nil {
		return nil, exception.NewBatchErrorf(module, "Job '%s' には JobParametersIncrementer が設定されていません", jobName)
	}

	instances, err := o.jobRepository.GetJobInstances(ctx, jobName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Job '%s' の JobInstance の取得に失敗しました", jobName), err, exception.IsTemporary(err), false)
	}
	previous := core.EmptyJobParameters()
	if len(instances) > 0 {
		previous = instances[len(instances)-1].Parameters
	}

	next := inc.GetNext(previous)
	logger.Infof("Job '%s' の次の JobParameters を生成したよ: %s", jobName, next)
	return o.Start(ctx, jobName, next)
}

// Abandon は STARTED のまま残った JobExecution を FAILED として終了させます。
func (o *DefaultJobOperator) Abandon(ctx context.Context, executionID string) error {
	logger.Infof("JobOperator: Abandon メソッドが呼び出されたよ。Execution ID: %s", executionID)

	jobExecution, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("放棄処理エラー: JobExecution (ID: %s) のロードに失敗しました", executionID), err, false, false)
	}
	if jobExecution.Status.IsFinished() {
		logger.Warnf("JobExecution (ID: %s) は既に終了状態 (%s) なので放棄できません。", executionID, jobExecution.Status)
		return exception.NewBatchError(module,
			fmt.Sprintf("放棄処理エラー: JobExecution (ID: %s) は既に終了状態です (%s)", executionID, jobExecution.Status),
			exception.ErrConsistency, false, false)
	}

	if err := o.jobRepository.FinalizeJobExecution(ctx, executionID, core.BatchStatusFailed, time.Now()); err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("放棄処理エラー: JobExecution (ID: %s) の状態更新に失敗しました", executionID), err, false, false)
	}

	logger.Infof("JobExecution (ID: %s) を FAILED として放棄したよ。", executionID)
	return nil
}

// GetJobExecution は指定された ID の JobExecution を取得します。
func (o *DefaultJobOperator) GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error) {
	logger.Debugf("JobOperator: GetJobExecution メソッドが呼び出されたよ。Execution ID: %s", executionID)
	jobExecution, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, false, false)
	}
	return jobExecution, nil
}

// GetJobExecutions は指定された JobInstance に関連する全ての JobExecution を取得します。
func (o *DefaultJobOperator) GetJobExecutions(ctx context.Context, instanceID string) ([]*core.JobExecution, error) {
	logger.Debugf("JobOperator: GetJobExecutions メソッドが呼び出されたよ。Instance ID: %s", instanceID)

	if _, err := o.jobRepository.FindJobInstanceByID(ctx, instanceID); err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の取得に失敗しました", instanceID), err, false, false)
	}
	jobExecutions, err := o.jobRepository.FindJobExecutionsByJobInstance(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) に関連する JobExecution の取得に失敗しました", instanceID), err, false, false)
	}

	logger.Debugf("JobInstance (ID: %s) に関連する %d 件の JobExecution を取得したよ。", instanceID, len(jobExecutions))
	return jobExecutions, nil
}

// GetLastJobExecution は指定された JobInstance の最新の JobExecution を取得します。
// JobExecution が存在しない場合は nil を返します。
func (o *DefaultJobOperator) GetLastJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error) {
	logger.Debugf("JobOperator: GetLastJobExecution メソッドが呼び出されたよ。Instance ID: %s", instanceID)
	jobExecution, err := o.jobRepository.FindLatestJobExecution(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の最新 JobExecution の取得に失敗しました", instanceID), err, false, false)
	}
	if jobExecution == nil {
		logger.Warnf("JobInstance (ID: %s) の JobExecution が見つからなかったよ。", instanceID)
	}
	return jobExecution, nil
}

// GetJobInstance は指定された ID の JobInstance を取得します。
func (o *DefaultJobOperator) GetJobInstance(ctx context.Context, instanceID string) (*core.JobInstance, error) {
	logger.Debugf("JobOperator: GetJobInstance メソッドが呼び出されたよ。Instance ID: %s", instanceID)
	jobInstance, err := o.jobRepository.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の取得に失敗しました", instanceID), err, false, false)
	}
	return jobInstance, nil
}

// GetJobInstances は指定されたジョブ名の JobInstance を取得します。
func (o *DefaultJobOperator) GetJobInstances(ctx context.Context, jobName string) ([]*core.JobInstance, error) {
	logger.Debugf("JobOperator: GetJobInstances メソッドが呼び出されたよ。Job Name: %s", jobName)
	jobInstances, err := o.jobRepository.GetJobInstances(ctx, jobName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Job '%s' の JobInstance の取得に失敗しました", jobName), err, false, false)
	}
	if jobInstances == nil {
		jobInstances = []*core.JobInstance{}
	}
	return jobInstances, nil
}

// GetJobNames は実行履歴に存在する全てのジョブ名を取得します。
func (o *DefaultJobOperator) GetJobNames(ctx context.Context) ([]string, error) {
	logger.Debugf("JobOperator: GetJobNames メソッドが呼び出されたよ。")
	jobNames, err := o.jobRepository.GetJobNames(ctx)
	if err != nil {
		return nil, exception.NewBatchError(module, "登録されているジョブ名の取得に失敗しました", err, false, false)
	}
	logger.Debugf("%d 件のジョブ名を取得したよ。", len(jobNames))
	return jobNames, nil
}

// GetParameters は指定された JobExecution の JobParameters を取得します。
// JobParameters は JobExecution が属する JobInstance から取得します。
func (o *DefaultJobOperator) GetParameters(ctx context.Context, executionID string) (core.JobParameters, error) {
	logger.Debugf("JobOperator: GetParameters メソッドが呼び出されたよ。Execution ID: %s", executionID)

	jobExecution, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return core.EmptyJobParameters(), exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, false, false)
	}
	jobInstance, err := o.jobRepository.FindJobInstanceByID(ctx, jobExecution.JobInstanceID)
	if err != nil {
		return core.EmptyJobParameters(), exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の取得に失敗しました", jobExecution.JobInstanceID), err, false, false)
	}
	return jobInstance.Parameters, nil
}
