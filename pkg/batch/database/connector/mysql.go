package connector

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // MySQL ドライバ

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
)

// mysqlConnector はMySQLデータベースへの接続を確立するDBConnectorの実装です。
type mysqlConnector struct{}

// Connect はMySQLデータベースへの接続を作成し、*sql.DBを返します。
// DSN には parseTime=true が含まれるため、DATETIME 列は time.Time として読み出せます。
func (c *mysqlConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openDB("mysql", "MySQL", cfg)
}

func init() {
	RegisterConnector(config.DatabaseTypeMySQL, &mysqlConnector{})
}
