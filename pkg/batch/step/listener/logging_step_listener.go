package listener

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// LoggingStepListener はステップの開始と完了をログに出力する StepExecutionListener の実装です。
type LoggingStepListener struct{}

// NewLoggingStepListener は新しい LoggingStepListener のインスタンスを作成します。
func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{}
}

// BeforeStep はステップが実行される直前に呼び出されます。
func (l *LoggingStepListener) BeforeStep(ctx context.Context, execCtx core.ExecutionContext) {
	logger.Infof("ステップ '%s' (Job: %s) を実行します。", execCtx.StepName, execCtx.JobName)
}

// AfterStep はステップの結果が記録された後に呼び出されます。成功・失敗に関わらず呼び出されます。
func (l *LoggingStepListener) AfterStep(ctx context.Context, execCtx core.ExecutionContext, result core.StepResult) {
	elapsed := result.EndTime.Sub(result.StartTime)
	if result.Status == core.BatchStatusFailed {
		logger.Errorf("ステップ '%s' が失敗しました (%s): %s", execCtx.StepName, elapsed, result.FailureDetail)
		return
	}
	logger.Infof("ステップ '%s' が完了しました。ステータス: %s (%s)", execCtx.StepName, result.Status, elapsed)
}

var _ core.StepExecutionListener = (*LoggingStepListener)(nil)
