package repository

import (
	"context"
	"fmt"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database/connector"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/memory"
	sqlrepo "github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/sql"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// NewJobRepository は設定に応じた JobRepository のインスタンスを作成します。
// database.type が memory (または未指定) の場合はインメモリ実装、それ以外は SQL 実装を返します。
// SQL 実装の場合はデータベース接続を確立し、Ping で疎通を確認します。
func NewJobRepository(ctx context.Context, cfg config.DatabaseConfig) (job.JobRepository, error) {
	const module = "repository_factory"
	logger.Debugf("JobRepository の生成を開始します (Type: %s).", cfg.Type)

	if cfg.IsMemory() {
		logger.Debugf("InMemoryJobRepository を生成しました。")
		return memory.NewInMemoryJobRepository(), nil
	}

	dialect, ok := database.DialectFor(cfg.Type)
	if !ok {
		return nil, exception.NewBatchErrorf(module, "未対応のデータベースタイプ: %s", cfg.Type)
	}

	dbConn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	if err != nil {
		logger.Errorf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s): %v", cfg.Type, err)
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s)", cfg.Type), err, exception.IsTemporary(err), false)
	}

	logger.Debugf("SQLJobRepository を生成しました (Dialect: %s).", dialect)
	return sqlrepo.NewSQLJobRepository(dbConn, dialect), nil
}
