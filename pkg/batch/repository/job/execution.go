package job

import (
	"context"
	"time"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// JobExecution は JobExecution の永続化と取得に関する操作を定義します。
type JobExecution interface {
	// HasSuccessfulExecution は JobInstance に COMPLETED の JobExecution が1つでもあれば true を返します。
	HasSuccessfulExecution(ctx context.Context, instanceID string) (bool, error)

	// CreateJobExecution は STARTED 状態の新しい JobExecution を作成します。
	// 受付判定はリポジトリ側で原子的に行い、既に成功した実行があれば exception.ErrAlreadyCompleted、
	// 実行中のものがあれば exception.ErrExecutionRunning を返します。
	CreateJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error)

	// FinalizeJobExecution は JobExecution を終了状態にします。
	// 同じステータスでの再実行は許容し、異なるステータスの場合は exception.ErrConsistency を返します。
	FinalizeJobExecution(ctx context.Context, executionID string, status core.BatchStatus, endTime time.Time) error

	// FindJobExecutionByID は指定された ID の JobExecution をステップ結果とともに取得します。
	FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error)

	// FindJobExecutionsByJobInstance は JobInstance に属する JobExecution を作成順に返します。
	FindJobExecutionsByJobInstance(ctx context.Context, instanceID string) ([]*core.JobExecution, error)

	// FindLatestJobExecution は JobInstance の最新の JobExecution を返します。存在しない場合は nil, nil です。
	FindLatestJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error)
}
