package connector

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql 用 pgx ドライバ ("pgx")

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
)

// pgxConnector は jackc/pgx の database/sql ドライバで PostgreSQL へ接続する DBConnector の実装です。
type pgxConnector struct{}

func (c *pgxConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openDB("pgx", "PostgreSQL (pgx)", cfg)
}

func init() {
	RegisterConnector(config.DatabaseTypePgx, &pgxConnector{})
}
