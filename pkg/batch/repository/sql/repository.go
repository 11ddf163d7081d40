// Package sql は database/sql を用いた JobRepository の実装です。
// PostgreSQL (lib/pq, pgx) と MySQL で動作し、クエリは PostgreSQL 形式で記述して方言ごとに書き換えます。
package sql

import (
	"context"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_repository"

// store は各リポジトリが共有する接続と方言です。
type store struct {
	db      database.DBConnection
	dialect database.Dialect
}

func (s store) q(query string) string {
	return s.dialect.Rebind(query)
}

// withTx はトランザクション内で fn を実行します。fn がエラーを返した場合はロールバックします。
func (s store) withTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return exception.NewBatchError(module, "トランザクションの開始に失敗しました", err, true, false)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warnf("トランザクションのロールバックに失敗しました: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return exception.NewBatchError(module, "トランザクションのコミットに失敗しました", err, true, false)
	}
	return nil
}

// SQLJobRepository は JobRepository インターフェースの SQL データベース実装です。
// 各リポジトリの具体的な実装を埋め込み、委譲します。
type SQLJobRepository struct {
	dbConnection database.DBConnection

	*SQLJobInstanceRepository
	*SQLJobExecutionRepository
	*SQLStepExecutionRepository
}

// NewSQLJobRepository は新しい SQLJobRepository のインスタンスを作成します。
// 既に確立されたデータベース接続と、その方言を受け取ります。
func NewSQLJobRepository(dbConn database.DBConnection, dialect database.Dialect) *SQLJobRepository {
	s := store{db: dbConn, dialect: dialect}
	return &SQLJobRepository{
		dbConnection:               dbConn,
		SQLJobInstanceRepository:   &SQLJobInstanceRepository{store: s},
		SQLJobExecutionRepository:  &SQLJobExecutionRepository{store: s},
		SQLStepExecutionRepository: &SQLStepExecutionRepository{store: s},
	}
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	if r.dbConnection != nil {
		if err := r.dbConnection.Close(); err != nil {
			return exception.NewBatchError(module, "データベース接続を閉じるのに失敗しました", err, false, false)
		}
		logger.Debugf("Job Repository のデータベース接続を閉じました。")
	}
	return nil
}

var _ job.JobRepository = (*SQLJobRepository)(nil)
