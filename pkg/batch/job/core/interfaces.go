package core

import "context"

// Step はジョブを構成する1つの処理単位です。
// Execute が nil を返せば COMPLETED、エラーを返せば FAILED として扱われます。
type Step interface {
	StepName() string
	Execute(ctx context.Context, params JobParameters, execCtx ExecutionContext) error
}

// Tasklet はステップ内で単独で実行されるカスタム処理です。
// TaskletStep によって Step に適合されます。
type Tasklet interface {
	// Execute はビジネスロジックを実行し、ExitStatus を返します。
	Execute(ctx context.Context, params JobParameters, execCtx ExecutionContext) (ExitStatus, error)
	// Close は Tasklet が使用するリソースを解放します。
	Close(ctx context.Context) error
}

// JobExecutionListener は JobExecution の前後に呼び出されるリスナーです。
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *JobExecution)
	AfterJob(ctx context.Context, jobExecution *JobExecution)
}

// StepExecutionListener は各ステップの前後に呼び出されるリスナーです。
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, execCtx ExecutionContext)
	AfterStep(ctx context.Context, execCtx ExecutionContext, result StepResult)
}

// JobRejectionListener は既に完了した JobInstance の実行が拒否されたときに通知を受けます。
// JobExecutionListener の実装が任意で追加実装します。
type JobRejectionListener interface {
	OnAlreadyCompleted(ctx context.Context, jobName string, params JobParameters)
}

// JobParametersIncrementer は次の JobInstance 用の JobParameters を生成します。
// previous は同じジョブの直近の JobInstance のパラメータです (存在しない場合は空)。
type JobParametersIncrementer interface {
	GetNext(previous JobParameters) JobParameters
}

// JobParametersValidator は JobInstance を記録する前に JobParameters を検証します。
type JobParametersValidator interface {
	Validate(params JobParameters) error
}
