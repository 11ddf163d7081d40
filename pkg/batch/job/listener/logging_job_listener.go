package listener

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// LoggingJobListener はジョブの開始と終了、および完了済みによる拒否をログに出力します。
type LoggingJobListener struct{}

func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	logger.Infof("Job '%s' の実行を開始します。(Execution ID: %s)", jobExecution.JobName, jobExecution.ID)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	if jobExecution.Status == core.BatchStatusFailed {
		logger.Errorf("Job '%s' がエラーで終了しました。(Execution ID: %s, 実行ステップ数: %d)",
			jobExecution.JobName, jobExecution.ID, len(jobExecution.StepResults))
		return
	}
	logger.Infof("Job '%s' の実行が正常に完了しました。(Execution ID: %s, 実行ステップ数: %d)",
		jobExecution.JobName, jobExecution.ID, len(jobExecution.StepResults))
}

// OnAlreadyCompleted は完了済みの JobInstance の再実行が拒否されたときに呼び出されます。
func (l *LoggingJobListener) OnAlreadyCompleted(ctx context.Context, jobName string, params core.JobParameters) {
	logger.Warnf("Job '%s' はパラメータ %s で既に完了しているため実行しません。", jobName, params)
}

var (
	_ core.JobExecutionListener = (*LoggingJobListener)(nil)
	_ core.JobRejectionListener = (*LoggingJobListener)(nil)
)
