package job

// JobRepository はバッチ実行に関するメタデータ (実行履歴) を永続化・管理するためのインターフェースです。
// 複数のより小さなリポジトリインターフェースを埋め込むことで、責務を分割します。
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close はリポジトリが使用するリソース (データベース接続など) を解放します。
	Close() error
}
