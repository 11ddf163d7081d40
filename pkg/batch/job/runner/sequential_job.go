package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_runner"

// ExecutionRecorder は SequentialJob がステップ結果と最終状態を記録するために使用する操作です。
// job.JobRepository はこのインターフェースを満たします。
type ExecutionRecorder interface {
	AppendStepResult(ctx context.Context, executionID string, result core.StepResult) error
	FinalizeJobExecution(ctx context.Context, executionID string, status core.BatchStatus, endTime time.Time) error
}

// SequentialJob は JobDefinition のステップを定義順に1つずつ実行します。
// 最初に失敗したステップで実行を打ち切り、残りのステップは実行しません。
type SequentialJob struct {
	definition    core.JobDefinition
	recorder      ExecutionRecorder
	jobListeners  []core.JobExecutionListener
	stepListeners []core.StepExecutionListener
}

// NewSequentialJob は新しい SequentialJob のインスタンスを作成します。
// リスナーは渡された順、続いて JobDefinition に設定された順に呼び出されます。
func NewSequentialJob(
	definition core.JobDefinition,
	recorder ExecutionRecorder,
	jobListeners []core.JobExecutionListener,
	stepListeners []core.StepExecutionListener,
) *SequentialJob {
	return &SequentialJob{
		definition:    definition,
		recorder:      recorder,
		jobListeners:  append(append([]core.JobExecutionListener(nil), jobListeners...), definition.JobListeners...),
		stepListeners: append(append([]core.StepExecutionListener(nil), stepListeners...), definition.StepListeners...),
	}
}

// JobName はジョブ名を返します。
func (j *SequentialJob) JobName() string {
	return j.definition.Name
}

func (j *SequentialJob) notifyBeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *SequentialJob) notifyAfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run は STARTED 状態の jobExecution に対してステップを順に実行し、最終状態を記録します。
// jobExecution の Status、EndTime、StepResults は実行結果に合わせて更新されます。
// ステップが失敗した場合は exception.ErrStepFailure とステップのエラーを含むエラーを返します。
func (j *SequentialJob) Run(ctx context.Context, jobExecution *core.JobExecution, params core.JobParameters) error {
	logger.Infof("ジョブ '%s' (Execution ID: %s) を始めるよ。", j.definition.Name, jobExecution.ID)
	j.notifyBeforeJob(ctx, jobExecution)

	runErr := j.runSteps(ctx, jobExecution, params)

	status := core.BatchStatusCompleted
	if runErr != nil {
		status = core.BatchStatusFailed
	}
	endTime := time.Now()
	if err := j.recorder.FinalizeJobExecution(ctx, jobExecution.ID, status, endTime); err != nil {
		logger.Errorf("JobExecution (ID: %s) の最終状態の更新に失敗しました: %v", jobExecution.ID, err)
		finalizeErr := exception.NewBatchError(module, "JobExecution 最終状態の永続化に失敗しました", err, false, false)
		if runErr == nil {
			runErr = finalizeErr
		} else {
			runErr = errors.Join(runErr, finalizeErr)
		}
		// 永続化できなかった場合でも、呼び出し元には実行の結果を返す
		status = core.BatchStatusFailed
	}
	jobExecution.Status = status
	jobExecution.EndTime = &endTime
	jobExecution.LastUpdated = endTime

	j.notifyAfterJob(ctx, jobExecution)
	logger.Infof("ジョブ '%s' (Execution ID: %s) が終了したよ。最終ステータス: %s", j.definition.Name, jobExecution.ID, jobExecution.Status)
	return runErr
}

func (j *SequentialJob) runSteps(ctx context.Context, jobExecution *core.JobExecution, params core.JobParameters) error {
	for _, step := range j.definition.Steps {
		execCtx := core.ExecutionContext{
			JobName:        j.definition.Name,
			JobInstanceID:  jobExecution.JobInstanceID,
			JobExecutionID: jobExecution.ID,
			StepName:       step.StepName(),
		}

		for _, l := range j.stepListeners {
			l.BeforeStep(ctx, execCtx)
		}

		result := core.StepResult{StepName: step.StepName(), StartTime: time.Now()}
		stepErr := executeStep(ctx, step, params, execCtx)
		result.EndTime = time.Now()
		if stepErr != nil {
			result.Status = core.BatchStatusFailed
			result.FailureDetail = stepErr.Error()
		} else {
			result.Status = core.BatchStatusCompleted
		}

		if err := j.recorder.AppendStepResult(ctx, jobExecution.ID, result); err != nil {
			logger.Errorf("ステップ '%s' の結果の記録に失敗しました: %v", step.StepName(), err)
			cause := err
			if stepErr != nil {
				cause = errors.Join(err, exception.ErrStepFailure, stepErr)
			}
			return exception.NewBatchError(module, fmt.Sprintf("ステップ '%s' の結果の記録に失敗しました", step.StepName()), cause, false, false)
		}
		jobExecution.StepResults = append(jobExecution.StepResults, result)

		for _, l := range j.stepListeners {
			l.AfterStep(ctx, execCtx, result)
		}

		if stepErr != nil {
			logger.Errorf("ステップ '%s' が失敗しました。後続のステップは実行しません: %v", step.StepName(), stepErr)
			return exception.NewBatchError(module, fmt.Sprintf("ステップ '%s' が失敗しました", step.StepName()),
				errors.Join(exception.ErrStepFailure, stepErr), false, false)
		}
	}
	return nil
}

// executeStep はステップを実行します。ステップ内の panic は失敗として扱います。
func executeStep(ctx context.Context, step core.Step, params core.JobParameters, execCtx core.ExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ステップ '%s' で panic が発生しました: %v", step.StepName(), r)
		}
	}()
	return step.Execute(ctx, params, execCtx)
}
