package core

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus は JobExecution およびステップ結果の状態を表します。
type BatchStatus string

const (
	BatchStatusStarted   BatchStatus = "STARTED"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// IsFinished はステータスが終了状態かどうかを判定します。
func (s BatchStatus) IsFinished() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// ToExitStatus は BatchStatus を ExitStatus に変換します。
func (s BatchStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	default:
		return ExitStatusUnknown
	}
}

// ExitStatus は Tasklet が返す終了ステータスです。
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
)

// JobInstance はジョブ名と JobParameters の組を一意に識別する論理的な実行単位です。
// 作成後に変更されることはありません。
type JobInstance struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	CreateTime     time.Time
	Version        int
}

// NewJobInstance は新しい JobInstance を作成します。
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: params.Hash(),
		CreateTime:     time.Now(),
		Version:        0,
	}
}

// StepResult は1ステップ分の実行結果です。
type StepResult struct {
	StepName      string
	Status        BatchStatus
	FailureDetail string
	StartTime     time.Time
	EndTime       time.Time
}

// JobExecution は JobInstance に対する1回分の実行試行です。
type JobExecution struct {
	ID            string
	JobInstanceID string
	JobName       string
	Status        BatchStatus
	StartTime     time.Time
	EndTime       *time.Time // 終了するまで nil
	StepResults   []StepResult
	CreateTime    time.Time
	LastUpdated   time.Time
	Version       int
}

// NewJobExecution は STARTED 状態の新しい JobExecution を作成します。
func NewJobExecution(jobInstance *JobInstance) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:            NewID(),
		JobInstanceID: jobInstance.ID,
		JobName:       jobInstance.JobName,
		Status:        BatchStatusStarted,
		StartTime:     now,
		StepResults:   []StepResult{},
		CreateTime:    now,
		LastUpdated:   now,
		Version:       0,
	}
}

// IsRunning は JobExecution が終了していない場合に true を返します。
func (je *JobExecution) IsRunning() bool {
	return !je.Status.IsFinished()
}

// Copy は StepResults を含めた JobExecution の複製を返します。
func (je *JobExecution) Copy() *JobExecution {
	c := *je
	c.StepResults = append([]StepResult(nil), je.StepResults...)
	if je.EndTime != nil {
		end := *je.EndTime
		c.EndTime = &end
	}
	return &c
}

// ExecutionContext はステップ実行時に明示的に渡される実行情報です。
type ExecutionContext struct {
	JobName        string
	JobInstanceID  string
	JobExecutionID string
	StepName       string
}

// ExecutionOutcome は JobLauncher の実行結果です。
type ExecutionOutcome struct {
	JobName        string
	JobInstanceID  string
	JobExecutionID string
	Status         BatchStatus
	StepResults    []StepResult
}

// NewID は新しい UUID 文字列を生成します。
func NewID() string {
	return uuid.New().String()
}
