package exception

import "errors"

// ジョブ実行の判定で使用する基本エラーです。
// 呼び出し側は errors.Is で判定してください。
var (
	// ErrAlreadyCompleted は同じパラメータで既に成功した JobInstance の再実行を拒否したことを示します。
	ErrAlreadyCompleted = errors.New("job instance already completed")
	// ErrStepFailure はステップが失敗し、JobExecution が FAILED で終了したことを示します。
	ErrStepFailure = errors.New("step failed")
	// ErrDuplicateInstance は同じジョブ名とパラメータの JobInstance が既に存在することを示します。
	ErrDuplicateInstance = errors.New("duplicate job instance")
	// ErrConsistency は JobExecution の状態遷移がリポジトリの記録と矛盾することを示します。
	ErrConsistency = errors.New("job repository consistency violation")
	// ErrUnknownExecution は存在しない、または既に終了した JobExecution を更新しようとしたことを示します。
	ErrUnknownExecution = errors.New("unknown or closed job execution")
	// ErrExecutionRunning は同じ JobInstance の JobExecution が実行中であることを示します。
	ErrExecutionRunning = errors.New("job execution already running")

	ErrJobInstanceNotFound  = errors.New("job instance not found")
	ErrJobExecutionNotFound = errors.New("job execution not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrInvalidJobDefinition = errors.New("invalid job definition")
	ErrInvalidParameters    = errors.New("invalid job parameters")
)
