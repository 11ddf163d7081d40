package joboperator

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// JobOperator はバッチ実行の管理操作を行うためのインターフェースです。
// JSR352 の JobOperator に相当します。
type JobOperator interface {
	// Start は登録されたジョブを指定されたパラメータで起動します。
	Start(ctx context.Context, jobName string, params core.JobParameters) (*core.ExecutionOutcome, error)

	// StartNextInstance は JobParametersIncrementer で直近の JobInstance のパラメータから次のパラメータを生成し、ジョブを起動します。
	StartNextInstance(ctx context.Context, jobName string) (*core.ExecutionOutcome, error)

	// Abandon は STARTED のまま残った JobExecution を FAILED として終了させます。
	// 既に終了している JobExecution には exception.ErrConsistency を返します。
	Abandon(ctx context.Context, executionID string) error

	// GetJobExecution は指定された ID の JobExecution を取得します。
	GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error)

	// GetJobExecutions は指定された JobInstance に関連する全ての JobExecution を作成順に取得します。
	GetJobExecutions(ctx context.Context, instanceID string) ([]*core.JobExecution, error)

	// GetLastJobExecution は指定された JobInstance の最新の JobExecution を取得します。
	GetLastJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error)

	// GetJobInstance は指定された ID の JobInstance を取得します。
	GetJobInstance(ctx context.Context, instanceID string) (*core.JobInstance, error)

	// GetJobInstances は指定されたジョブ名の JobInstance を作成順に取得します。
	GetJobInstances(ctx context.Context, jobName string) ([]*core.JobInstance, error)

	// GetJobNames は実行履歴に存在する全てのジョブ名を取得します。
	GetJobNames(ctx context.Context) ([]string, error)

	// GetParameters は指定された JobExecution の JobParameters を取得します。
	GetParameters(ctx context.Context, executionID string) (core.JobParameters, error)
}
