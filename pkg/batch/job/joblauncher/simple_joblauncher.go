package joblauncher

import (
	"context"
	"errors"
	"fmt"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/job/runner"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_launcher"

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// JobRepository を使用して実行履歴を管理し、ステップは呼び出し元の goroutine で順に実行します。
type SimpleJobLauncher struct {
	jobRepository job.JobRepository
	jobListeners  []core.JobExecutionListener
	stepListeners []core.StepExecutionListener
}

// Option は SimpleJobLauncher の任意設定です。
type Option func(*SimpleJobLauncher)

// WithJobListeners は全てのジョブに適用する JobExecutionListener を追加します。
// JobRejectionListener も実装しているリスナーには、完了済みによる拒否も通知されます。
func WithJobListeners(listeners ...core.JobExecutionListener) Option {
	return func(l *SimpleJobLauncher) {
		l.jobListeners = append(l.jobListeners, listeners...)
	}
}

// WithStepListeners は全てのジョブのステップに適用する StepExecutionListener を追加します。
func WithStepListeners(listeners ...core.StepExecutionListener) Option {
	return func(l *SimpleJobLauncher) {
		l.stepListeners = append(l.stepListeners, listeners...)
	}
}

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
func NewSimpleJobLauncher(jobRepository job.JobRepository, opts ...Option) *SimpleJobLauncher {
	l := &SimpleJobLauncher{jobRepository: jobRepository}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run は指定された JobDefinition を JobParameters とともに実行します。
//
// 同じジョブ名とパラメータの JobInstance に COMPLETED の JobExecution が既にある場合は、
// JobExecution を作成せずに exception.ErrAlreadyCompleted を含むエラーを返します。
// ステップが失敗した場合は FAILED の ExecutionOutcome と exception.ErrStepFailure を含むエラーを返します。
func (l *SimpleJobLauncher) Run(ctx context.Context, def core.JobDefinition, params core.JobParameters) (*core.ExecutionOutcome, error) {
	logger.Infof("JobLauncher を使用して Job '%s' を起動するよ。Parameters: %s", def.Name, params)

	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.Validator != nil {
		if err := def.Validator.Validate(params); err != nil {
			logger.Errorf("Job '%s': JobParameters のバリデーションに失敗しました: %v", def.Name, err)
			return nil, exception.NewBatchError(module, "JobParameters のバリデーションエラー", err, false, false)
		}
	}

	jobInstance, err := l.findOrCreateInstance(ctx, def.Name, params)
	if err != nil {
		return nil, err
	}

	completed, err := l.jobRepository.HasSuccessfulExecution(ctx, jobInstance.ID)
	if err != nil {
		return nil, exception.NewBatchError(module, "起動処理エラー: 実行履歴の確認に失敗しました", err, exception.IsTemporary(err), false)
	}
	if completed {
		return nil, l.reject(ctx, def, params, nil)
	}

	jobExecution, err := l.jobRepository.CreateJobExecution(ctx, jobInstance.ID)
	if err != nil {
		if errors.Is(err, exception.ErrAlreadyCompleted) {
			// 確認後に別の実行が完了した場合
			return nil, l.reject(ctx, def, params, err)
		}
		logger.Errorf("JobExecution の作成に失敗しました (JobInstance ID: %s): %v", jobInstance.ID, err)
		return nil, exception.NewBatchError(module, "起動処理エラー: JobExecution の作成に失敗しました", err, false, false)
	}

	logger.Infof("Job '%s' (Execution ID: %s, Job Instance ID: %s) を実行するよ。", def.Name, jobExecution.ID, jobInstance.ID)
	runErr := runner.NewSequentialJob(def, l.jobRepository, l.jobListeners, l.stepListeners).Run(ctx, jobExecution, params)

	outcome := &core.ExecutionOutcome{
		JobName:        def.Name,
		JobInstanceID:  jobInstance.ID,
		JobExecutionID: jobExecution.ID,
		Status:         jobExecution.Status,
		StepResults:    append([]core.StepResult(nil), jobExecution.StepResults...),
	}
	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

func (l *SimpleJobLauncher) findOrCreateInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	jobInstance, err := l.jobRepository.FindJobInstance(ctx, jobName, params)
	if err != nil {
		logger.Errorf("JobInstance (JobName: %s, Parameters: %s) の検索に失敗しました: %v", jobName, params, err)
		return nil, exception.NewBatchError(module, "起動処理エラー: JobInstance の検索に失敗しました", err, exception.IsTemporary(err), false)
	}
	if jobInstance != nil {
		logger.Infof("既存の JobInstance (ID: %s, JobName: %s) を使用します。", jobInstance.ID, jobInstance.JobName)
		return jobInstance, nil
	}

	jobInstance, err = l.jobRepository.CreateJobInstance(ctx, jobName, params)
	if errors.Is(err, exception.ErrDuplicateInstance) {
		// 並行した起動が先に作成した JobInstance を使用する
		logger.Warnf("JobInstance (JobName: %s, Parameters: %s) は他の起動処理で作成済みです。再検索します。", jobName, params)
		jobInstance, err = l.jobRepository.FindJobInstance(ctx, jobName, params)
		if err == nil && jobInstance == nil {
			err = exception.NewBatchErrorf(module, "作成済みの JobInstance (JobName: %s) が見つかりませんでした", jobName)
		}
		if err != nil {
			return nil, exception.NewBatchError(module, "起動処理エラー: JobInstance の再検索に失敗しました", err, exception.IsTemporary(err), false)
		}
		return jobInstance, nil
	}
	if err != nil {
		logger.Errorf("新しい JobInstance (JobName: %s) の保存に失敗しました: %v", jobName, err)
		return nil, exception.NewBatchError(module, "起動処理エラー: 新しい JobInstance の保存に失敗しました", err, false, false)
	}
	logger.Infof("新しい JobInstance (ID: %s, JobName: %s) を作成し保存しました。", jobInstance.ID, jobInstance.JobName)
	return jobInstance, nil
}

// reject は完了済みの JobInstance に対する実行を拒否し、JobRejectionListener を実装するリスナーに通知します。
func (l *SimpleJobLauncher) reject(ctx context.Context, def core.JobDefinition, params core.JobParameters, cause error) error {
	listeners := append(append([]core.JobExecutionListener(nil), l.jobListeners...), def.JobListeners...)
	for _, listener := range listeners {
		if rl, ok := listener.(core.JobRejectionListener); ok {
			rl.OnAlreadyCompleted(ctx, def.Name, params)
		}
	}
	if cause == nil {
		cause = exception.ErrAlreadyCompleted
	}
	return exception.NewBatchError(module,
		fmt.Sprintf("ジョブインスタンスは既に存在し、完了しています。parameters=%s 。このジョブを再実行する場合はパラメータを変更してください。", params),
		cause, false, false)
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
