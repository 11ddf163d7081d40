package connector

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続を確立するためのインターフェースです。
type DBConnector interface {
	Connect(cfg config.DatabaseConfig) (*sql.DB, error)
}

var (
	mu         sync.RWMutex
	connectors = make(map[string]DBConnector)
)

// RegisterConnector は指定されたタイプ名でDBConnectorを登録します。
// 同じタイプ名で登録した場合は上書きされます。
func RegisterConnector(dbType string, connector DBConnector) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := connectors[dbType]; exists {
		logger.Warnf("DBタイプ '%s' の DBConnector は既に登録されています。上書きします。", dbType)
	}
	connectors[dbType] = connector
}

// RegisteredTypes は登録済みのデータベースタイプをソートして返します。
func RegisteredTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(connectors))
	for t := range connectors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// GetSQLDB は設定に基づいて登録されたコネクタを選択し、*sql.DB を返します。
func GetSQLDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	mu.RLock()
	connector, ok := connectors[strings.ToLower(cfg.Type)]
	mu.RUnlock()
	if !ok {
		return nil, exception.NewBatchErrorf("database", "未対応のデータベースタイプ: %s (登録済み: %v)", cfg.Type, RegisteredTypes())
	}
	return connector.Connect(cfg)
}

// NewDBConnectionFromConfig はデータベース接続を確立し、Ping で疎通を確認した上で DBConnection として返します。
// Ping の失敗はリトライ可能なエラーとして返します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	rawDB, err := GetSQLDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, exception.NewBatchError("database", fmt.Sprintf("データベースへのPingに失敗しました (Type: %s)", cfg.Type), err, true, false)
	}
	logger.Debugf("データベースに正常に接続しました。Type: %s, Host: %s:%d", cfg.Type, cfg.Host, cfg.Port)
	return database.NewSQLDBAdapter(rawDB), nil
}

// openDB はドライバ名を指定して *sql.DB を作成し、コネクションプール設定を適用します。
func openDB(driverName, label string, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, exception.NewBatchError("database", label+" への接続に失敗しました", err, false, false)
	}

	pool := cfg.ConnectionPool
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	logger.Debugf("%s の接続を作成しました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒",
		label, pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
	return db, nil
}
