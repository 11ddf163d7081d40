package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"    // MySQL ドライバを登録
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL ドライバを登録 (pgx 接続時も使用)
	_ "github.com/golang-migrate/migrate/v4/source/file"       // ファイルソースドライバを登録
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// フレームワークのメタデータテーブル用マイグレーション
//
//go:embed migrations
var frameworkMigrations embed.FS

const (
	// フレームワークのマイグレーションは 'batch_schema_migrations' テーブルを使用
	frameworkMigrationsTable = "batch_schema_migrations"
	appMigrationsTable       = "schema_migrations"
)

// RunMigrations は JobRepository のテーブルを作成・更新します。
// cfg.AppMigrationPath が指定されている場合は、続けてアプリケーションのマイグレーションも適用します。
func RunMigrations(cfg config.DatabaseConfig) error {
	dialect, ok := DialectFor(cfg.Type)
	if !ok {
		return exception.NewBatchErrorf("migration", "サポートされていないデータベースタイプ: %s", cfg.Type)
	}

	logger.Infof("フレームワークのマイグレーションを開始します。DBタイプ: %s", cfg.Type)
	source, err := iofs.New(frameworkMigrations, "migrations/"+string(dialect))
	if err != nil {
		return exception.NewBatchError("migration", "埋め込みマイグレーションの読み込みに失敗しました", err, false, false)
	}
	databaseURL, err := MigrationURL(cfg, frameworkMigrationsTable)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションインスタンスの作成に失敗しました", err, true, false)
	}
	if err := up(m); err != nil {
		return err
	}

	if cfg.AppMigrationPath == "" {
		return nil
	}

	logger.Infof("アプリケーションのマイグレーションを開始します。マイグレーションパス: %s", cfg.AppMigrationPath)
	appURL, err := MigrationURL(cfg, appMigrationsTable)
	if err != nil {
		return err
	}
	am, err := migrate.New(fmt.Sprintf("file://%s", cfg.AppMigrationPath), appURL)
	if err != nil {
		return exception.NewBatchError("migration", fmt.Sprintf("マイグレーションインスタンスの作成に失敗しました: %s", cfg.AppMigrationPath), err, false, false)
	}
	return up(am)
}

func up(m *migrate.Migrate) error {
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("マイグレーションのクローズに失敗しました: %v", errors.Join(srcErr, dbErr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewBatchError("migration", "マイグレーションの実行に失敗しました", err, false, false)
	}
	logger.Infof("データベースマイグレーションが正常に完了しました。")
	return nil
}

// MigrationURL は golang-migrate が期待するデータベース URL を組み立てます。
func MigrationURL(cfg config.DatabaseConfig, migrationsTable string) (string, error) {
	var databaseURL string
	switch strings.ToLower(cfg.Type) {
	case config.DatabaseTypePostgres, config.DatabaseTypePgx:
		databaseURL = cfg.ConnectionString()
	case config.DatabaseTypeMySQL:
		// マイグレーションファイルは複数ステートメントを含む
		databaseURL = "mysql://" + cfg.ConnectionString() + "&multiStatements=true"
	default:
		return "", exception.NewBatchErrorf("migration", "サポートされていないデータベースタイプ: %s", cfg.Type)
	}
	return databaseURL + "&x-migrations-table=" + migrationsTable, nil
}
