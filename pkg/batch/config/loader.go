package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// ConfigLoader は Config をロードするためのインターフェースです。
type ConfigLoader interface {
	Load() (*Config, error)
}

// BytesConfigLoader はバイトスライスから設定をロードする ConfigLoader の実装です。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load は埋め込まれたバイトスライスから設定をロードし、環境変数で上書きします。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()

	// デフォルト値を持つ Config に直接デコードするため、YAML にないキーはデフォルトのまま残る
	if err := yaml.Unmarshal(l.data, cfg); err != nil {
		return nil, exception.NewBatchError("config", "YAML設定のパースに失敗しました", err, false, false)
	}
	cfg.EmbeddedConfig = l.data

	loadEnvVars(cfg)

	return cfg, nil
}

var _ ConfigLoader = (*BytesConfigLoader)(nil)

// 環境変数で個別の設定値を上書きする関数
func loadEnvVars(cfg *Config) {
	// Database 設定
	setString("DATABASE_TYPE", &cfg.Database.Type)
	setString("DATABASE_HOST", &cfg.Database.Host)
	setInt("DATABASE_PORT", &cfg.Database.Port)
	setString("DATABASE_DATABASE", &cfg.Database.Database)
	setString("DATABASE_USER", &cfg.Database.User)
	setString("DATABASE_PASSWORD", &cfg.Database.Password)
	setString("DATABASE_SSLMODE", &cfg.Database.Sslmode)
	setInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.ConnectionPool.MaxOpenConns)
	setInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.ConnectionPool.MaxIdleConns)
	setInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", &cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds)

	// Batch 設定
	setString("BATCH_JOB_NAME", &cfg.Batch.JobName)
	setString("BATCH_MIGRATION_PATH", &cfg.Database.AppMigrationPath)

	// System 設定
	setString("SYSTEM_LOGGING_LEVEL", &cfg.System.Logging.Level)
	setString("SYSTEM_METRICS_ADDRESS", &cfg.System.Metrics.Address)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。デフォルト値または設定ファイルの値を使用します。", key, v)
		return
	}
	*dst = n
}
