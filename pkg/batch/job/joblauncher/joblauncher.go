package joblauncher

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// JobLauncher は JobDefinition を JobParameters とともに実行するためのインターフェースです。
// Spring Batchの JobLauncher に相当します。
type JobLauncher interface {
	// Run は JobInstance の検索・作成、受付判定、JobExecution の作成、ステップの実行、最終状態の記録を行います。
	// 受け付けられた実行では、失敗した場合でも ExecutionOutcome を返します。
	Run(ctx context.Context, def core.JobDefinition, params core.JobParameters) (*core.ExecutionOutcome, error)
}
