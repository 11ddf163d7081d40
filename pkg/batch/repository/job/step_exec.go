package job

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// StepExecution はステップ結果の記録と取得に関する操作を定義します。
type StepExecution interface {
	// AppendStepResult は実行中の JobExecution にステップ結果を順序どおり追加します。
	// JobExecution が存在しないか既に終了している場合は exception.ErrUnknownExecution を返します。
	AppendStepResult(ctx context.Context, executionID string, result core.StepResult) error

	// FindStepResults は JobExecution のステップ結果を記録順に返します。
	FindStepResults(ctx context.Context, executionID string) ([]core.StepResult, error)
}
