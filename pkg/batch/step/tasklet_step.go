package step

import (
	"context"
	"fmt"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// TaskletStep は Tasklet インターフェースをラップし、core.Step インターフェースを実装します。
// JSR352のTaskletステップに相当します。
type TaskletStep struct {
	name    string
	tasklet core.Tasklet
}

// TaskletStep が core.Step インターフェースを満たすことを確認します。
var _ core.Step = (*TaskletStep)(nil)

// NewTaskletStep は新しい TaskletStep のインスタンスを作成します。
func NewTaskletStep(name string, tasklet core.Tasklet) *TaskletStep {
	return &TaskletStep{name: name, tasklet: tasklet}
}

// StepName はステップ名を返します。
func (s *TaskletStep) StepName() string {
	return s.name
}

// Execute は Tasklet を実行します。Tasklet がエラーを返すか、COMPLETED 以外の ExitStatus を返した場合は失敗です。
// Tasklet の Close は成否に関わらず呼び出されます。
func (s *TaskletStep) Execute(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) (err error) {
	logger.Debugf("Taskletステップ '%s' (Execution ID: %s) を始めるよ。", s.name, execCtx.JobExecutionID)

	defer func() {
		if closeErr := s.tasklet.Close(ctx); closeErr != nil {
			logger.Errorf("Taskletステップ '%s': Tasklet のクローズに失敗したよ: %v", s.name, closeErr)
			if err == nil {
				err = exception.NewBatchError(s.name, "Tasklet のクローズエラー", closeErr, false, false)
			}
		}
	}()

	exitStatus, err := s.tasklet.Execute(ctx, params, execCtx)
	if err != nil {
		logger.Errorf("Taskletステップ '%s' の実行中にエラーが発生したよ: %v", s.name, err)
		return exception.NewBatchError(s.name, "Tasklet 実行エラー", err, false, false)
	}
	if exitStatus != core.ExitStatusCompleted {
		return exception.NewBatchError(s.name, fmt.Sprintf("Tasklet が COMPLETED 以外の終了ステータスを返しました: %s", exitStatus), nil, false, false)
	}

	logger.Debugf("Taskletステップ '%s' が正常に完了したよ。ExitStatus: %s", s.name, exitStatus)
	return nil
}
