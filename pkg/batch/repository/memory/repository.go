// Package memory はプロセス内のマップに実行履歴を保持する JobRepository の実装です。
// テストや、永続化を必要としない一回限りの実行で使用します。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_repository"

type instanceKey struct {
	jobName        string
	parametersHash string
}

// InMemoryJobRepository は JobRepository インターフェースのインメモリ実装です。
// 全ての操作は1つのミューテックスで直列化されるため、受付判定と JobExecution の作成は原子的に行われます。
type InMemoryJobRepository struct {
	mu sync.Mutex

	instances       map[string]*core.JobInstance
	instancesByKey  map[instanceKey]string
	instanceOrder   []string
	executions      map[string]*core.JobExecution
	executionsByJob map[string][]string // JobInstance ID -> JobExecution ID (作成順)
}

// NewInMemoryJobRepository は新しい InMemoryJobRepository のインスタンスを作成します。
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		instances:       make(map[string]*core.JobInstance),
		instancesByKey:  make(map[instanceKey]string),
		executions:      make(map[string]*core.JobExecution),
		executionsByJob: make(map[string][]string),
	}
}

var _ job.JobRepository = (*InMemoryJobRepository)(nil)

// FindJobInstance はジョブ名とパラメータに一致する JobInstance を検索します。
func (r *InMemoryJobRepository) FindJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.instancesByKey[instanceKey{jobName, params.Hash()}]
	if !ok {
		return nil, nil
	}
	instance := *r.instances[id]
	return &instance, nil
}

// CreateJobInstance は新しい JobInstance を作成します。
func (r *InMemoryJobRepository) CreateJobInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey{jobName, params.Hash()}
	if existingID, exists := r.instancesByKey[key]; exists {
		return nil, exception.NewBatchError(module,
			fmt.Sprintf("JobInstance (JobName: %s, Parameters: %s) は既に存在します (ID: %s)", jobName, params, existingID),
			exception.ErrDuplicateInstance, false, false)
	}

	instance := core.NewJobInstance(jobName, params)
	r.instances[instance.ID] = instance
	r.instancesByKey[key] = instance.ID
	r.instanceOrder = append(r.instanceOrder, instance.ID)

	logger.Debugf("JobInstance (ID: %s, JobName: %s) を保存しました。", instance.ID, jobName)
	created := *instance
	return &created, nil
}

// FindJobInstanceByID は指定された ID の JobInstance を取得します。
func (r *InMemoryJobRepository) FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, ok := r.instances[instanceID]
	if !ok {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) が見つかりませんでした", instanceID), exception.ErrJobInstanceNotFound, false, false)
	}
	found := *instance
	return &found, nil
}

// GetJobInstances は指定されたジョブ名の JobInstance を作成順に返します。
func (r *InMemoryJobRepository) GetJobInstances(ctx context.Context, jobName string) ([]*core.JobInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*core.JobInstance
	for _, id := range r.instanceOrder {
		if instance := r.instances[id]; instance.JobName == jobName {
			found := *instance
			result = append(result, &found)
		}
	}
	return result, nil
}

// GetJobNames はリポジトリに存在する全てのジョブ名をソートして返します。
func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var names []string
	for _, instance := range r.instances {
		if _, ok := seen[instance.JobName]; !ok {
			seen[instance.JobName] = struct{}{}
			names = append(names, instance.JobName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// HasSuccessfulExecution は JobInstance に COMPLETED の JobExecution があるかを返します。
func (r *InMemoryJobRepository) HasSuccessfulExecution(ctx context.Context, instanceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasStatusLocked(instanceID, core.BatchStatusCompleted), nil
}

func (r *InMemoryJobRepository) hasStatusLocked(instanceID string, status core.BatchStatus) bool {
	for _, id := range r.executionsByJob[instanceID] {
		if r.executions[id].Status == status {
			return true
		}
	}
	return false
}

// CreateJobExecution は受付判定を行った上で STARTED 状態の JobExecution を作成します。
func (r *InMemoryJobRepository) CreateJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, ok := r.instances[instanceID]
	if !ok {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) が見つかりませんでした", instanceID), exception.ErrJobInstanceNotFound, false, false)
	}
	if r.hasStatusLocked(instanceID, core.BatchStatusCompleted) {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) は既に完了しています", instanceID), exception.ErrAlreadyCompleted, false, false)
	}
	if r.hasStatusLocked(instanceID, core.BatchStatusStarted) {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の JobExecution が実行中です", instanceID), exception.ErrExecutionRunning, false, false)
	}

	execution := core.NewJobExecution(instance)
	r.executions[execution.ID] = execution
	r.executionsByJob[instanceID] = append(r.executionsByJob[instanceID], execution.ID)

	logger.Debugf("JobExecution (ID: %s, JobInstance ID: %s) を保存しました。", execution.ID, instanceID)
	return execution.Copy(), nil
}

// AppendStepResult は実行中の JobExecution にステップ結果を追加します。
func (r *InMemoryJobRepository) AppendStepResult(ctx context.Context, executionID string, result core.StepResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[executionID]
	if !ok || !execution.IsRunning() {
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) は存在しないか既に終了しています", executionID), exception.ErrUnknownExecution, false, false)
	}
	execution.StepResults = append(execution.StepResults, result)
	execution.LastUpdated = time.Now()
	execution.Version++
	return nil
}

// FinalizeJobExecution は JobExecution を終了状態にします。
func (r *InMemoryJobRepository) FinalizeJobExecution(ctx context.Context, executionID string, status core.BatchStatus, endTime time.Time) error {
	if !status.IsFinished() {
		return exception.NewBatchError(module, fmt.Sprintf("終了状態ではないステータス '%s' は指定できません", status), exception.ErrConsistency, false, false)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[executionID]
	if !ok {
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrUnknownExecution, false, false)
	}
	if execution.Status.IsFinished() {
		if execution.Status == status {
			logger.Debugf("JobExecution (ID: %s) は既に %s で終了しています。", executionID, status)
			return nil
		}
		return exception.NewBatchError(module,
			fmt.Sprintf("JobExecution (ID: %s) は既に %s で終了しているため %s にできません", executionID, execution.Status, status),
			exception.ErrConsistency, false, false)
	}

	end := endTime
	execution.Status = status
	execution.EndTime = &end
	execution.LastUpdated = time.Now()
	execution.Version++
	return nil
}

// FindJobExecutionByID は指定された ID の JobExecution を取得します。
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[executionID]
	if !ok {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrJobExecutionNotFound, false, false)
	}
	return execution.Copy(), nil
}

// FindJobExecutionsByJobInstance は JobInstance に属する JobExecution を作成順に返します。
func (r *InMemoryJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instanceID string) ([]*core.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.executionsByJob[instanceID]
	result := make([]*core.JobExecution, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.executions[id].Copy())
	}
	return result, nil
}

// FindLatestJobExecution は JobInstance の最新の JobExecution を返します。
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, instanceID string) (*core.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.executionsByJob[instanceID]
	if len(ids) == 0 {
		return nil, nil
	}
	return r.executions[ids[len(ids)-1]].Copy(), nil
}

// FindStepResults は JobExecution のステップ結果を記録順に返します。
func (r *InMemoryJobRepository) FindStepResults(ctx context.Context, executionID string) ([]core.StepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[executionID]
	if !ok {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) が見つかりませんでした", executionID), exception.ErrJobExecutionNotFound, false, false)
	}
	return append([]core.StepResult(nil), execution.StepResults...), nil
}

// Close はリポジトリが使用するリソースを解放します。インメモリ実装では何もしません。
func (r *InMemoryJobRepository) Close() error {
	return nil
}
