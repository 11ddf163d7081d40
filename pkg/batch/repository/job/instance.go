package job

import (
	"context"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// JobInstance は JobInstance の永続化と取得に関する操作を定義します。
type JobInstance interface {
	// FindJobInstance はジョブ名とパラメータに一致する JobInstance を検索します。
	// 見つからない場合は nil, nil を返します。
	FindJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error)

	// CreateJobInstance は新しい JobInstance を作成して永続化します。
	// 同じジョブ名とパラメータの JobInstance が既に存在する場合は exception.ErrDuplicateInstance を返します。
	CreateJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error)

	// FindJobInstanceByID は指定された ID の JobInstance を取得します。
	// 見つからない場合は exception.ErrJobInstanceNotFound を返します。
	FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error)

	// GetJobInstances は指定されたジョブ名の JobInstance を作成順に返します。
	GetJobInstances(ctx context.Context, jobName string) ([]*core.JobInstance, error)

	// GetJobNames はリポジトリに存在する全てのジョブ名を返します。
	GetJobNames(ctx context.Context) ([]string, error)
}
