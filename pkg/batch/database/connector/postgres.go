package connector

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL ドライバ

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
)

// postgresConnector は lib/pq で PostgreSQL へ接続する DBConnector の実装です。
type postgresConnector struct{}

// Connect はPostgreSQLデータベースへの接続を作成し、*sql.DBを返します。
func (c *postgresConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openDB("postgres", "PostgreSQL", cfg)
}

func init() {
	RegisterConnector(config.DatabaseTypePostgres, &postgresConnector{})
}
