package config

import (
	"fmt"
	"strings"
)

// EmbeddedConfig は、設定ファイルの内容を保持するためのフィールドです。
// main.go から渡される埋め込み設定を格納します。
type EmbeddedConfig []byte

// データベースタイプ
const (
	DatabaseTypeMemory   = "memory"
	DatabaseTypePostgres = "postgres"
	DatabaseTypePgx      = "pgx"
	DatabaseTypeMySQL    = "mysql"
)

// ConnectionPoolConfig はデータベースコネクションプールの設定を保持します。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// DatabaseConfig は JobRepository が使用するデータベースの設定です。
type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"`
	// アプリケーション固有のマイグレーションファイルのパス (任意)
	AppMigrationPath string               `yaml:"app_migration_path"`
	ConnectionPool   ConnectionPoolConfig `yaml:"connection_pool"`
}

// ConnectionString はデータベースタイプに応じた接続文字列を返します。
// postgres と pgx は golang-migrate が期待する URL 形式、mysql は go-sql-driver/mysql の DSN 形式です。
func (c DatabaseConfig) ConnectionString() string {
	switch strings.ToLower(c.Type) {
	case DatabaseTypePostgres, DatabaseTypePgx:
		sslmode := c.Sslmode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, sslmode)
	case DatabaseTypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		return ""
	}
}

// IsMemory はインメモリの JobRepository を使用する設定かどうかを返します。
func (c DatabaseConfig) IsMemory() bool {
	return c.Type == "" || strings.EqualFold(c.Type, DatabaseTypeMemory)
}

// BatchConfig はバッチ実行に関する設定です。
type BatchConfig struct {
	// 実行するジョブ名 (JSL の job id)
	JobName string `yaml:"job_name"`
	// 起動時の接続リトライ設定
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig はデータベース接続時のリトライ設定です。ステップの自動リトライには使用しません。
type RetryConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	InitialInterval int `yaml:"initial_interval"` // ミリ秒
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig は Prometheus メトリクスの公開設定です。Address が空の場合は公開しません。
type MetricsConfig struct {
	Address string `yaml:"address"`
}

type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	Batch          BatchConfig    `yaml:"batch"`
	System         SystemConfig   `yaml:"system"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"` // 埋め込み設定を格納するためのフィールド。YAMLからは読み込まない。
}

// NewConfig はデフォルト値を設定した Config の新しいインスタンスを返します。
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: DatabaseTypeMemory,
		},
		Batch: BatchConfig{
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 1000,
			},
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO"},
		},
	}
}
