package connector

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

type failingConnector struct{ err error }

func (c *failingConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, c.err
}

func TestRegisteredTypes(t *testing.T) {
	types := RegisteredTypes()
	assert.Subset(t, types, []string{"mysql", "pgx", "postgres"})
}

func TestGetSQLDB_UnknownType(t *testing.T) {
	_, err := GetSQLDB(config.DatabaseConfig{Type: "snowflake"})
	require.Error(t, err)
	var be *exception.BatchError
	assert.True(t, errors.As(err, &be))
	assert.Contains(t, err.Error(), "snowflake")
}

func TestGetSQLDB_DelegatesToRegisteredConnector(t *testing.T) {
	boom := errors.New("boom")
	RegisterConnector("failing", &failingConnector{err: boom})

	_, err := GetSQLDB(config.DatabaseConfig{Type: "FAILING"})
	assert.ErrorIs(t, err, boom)

	_, err = NewDBConnectionFromConfig(context.Background(), config.DatabaseConfig{Type: "failing"})
	assert.ErrorIs(t, err, boom)
}

func TestOpenDB_AppliesPool(t *testing.T) {
	cfg := config.DatabaseConfig{
		Type: "postgres", Host: "localhost", Port: 5432, Database: "batch", User: "u", Password: "p",
		ConnectionPool: config.ConnectionPoolConfig{MaxOpenConns: 7},
	}
	// sql.Open は接続を確立しないため、サーバがなくても成功する
	db, err := GetSQLDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
