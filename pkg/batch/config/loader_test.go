package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
database:
  type: postgres
  host: localhost
  port: 5432
  database: batch
  user: batch
  password: secret
  connection_pool:
    max_open_conns: 5
batch:
  job_name: simpleJob
system:
  logging:
    level: DEBUG
`

func TestBytesConfigLoader_Load(t *testing.T) {
	cfg, err := NewBytesConfigLoader([]byte(testYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5, cfg.Database.ConnectionPool.MaxOpenConns)
	assert.Equal(t, "simpleJob", cfg.Batch.JobName)
	assert.Equal(t, "DEBUG", cfg.System.Logging.Level)
	// YAML にない値はデフォルトのまま
	assert.Equal(t, 3, cfg.Batch.Retry.MaxAttempts)
	assert.Equal(t, "UTC", cfg.System.Timezone)
	assert.Equal(t, []byte(testYAML), []byte(cfg.EmbeddedConfig))
}

func TestBytesConfigLoader_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "mysql")
	t.Setenv("DATABASE_PORT", "3306")
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "not-a-number")
	t.Setenv("BATCH_JOB_NAME", "stepNextJob")
	t.Setenv("BATCH_MIGRATION_PATH", "/migrations")
	t.Setenv("SYSTEM_LOGGING_LEVEL", "WARN")
	t.Setenv("SYSTEM_METRICS_ADDRESS", ":9090")

	cfg, err := NewBytesConfigLoader([]byte(testYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 0, cfg.Database.ConnectionPool.MaxIdleConns, "invalid numbers are ignored")
	assert.Equal(t, "stepNextJob", cfg.Batch.JobName)
	assert.Equal(t, "/migrations", cfg.Database.AppMigrationPath)
	assert.Equal(t, "WARN", cfg.System.Logging.Level)
	assert.Equal(t, ":9090", cfg.System.Metrics.Address)
}

func TestBytesConfigLoader_InvalidYAML(t *testing.T) {
	_, err := NewBytesConfigLoader([]byte("database: [")).Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Type: "postgres", Host: "db", Port: 5432, Database: "batch", User: "u", Password: "p", Sslmode: "require"},
			want: "postgres://u:p@db:5432/batch?sslmode=require",
		},
		{
			name: "pgx defaults sslmode",
			cfg:  DatabaseConfig{Type: "pgx", Host: "db", Port: 5432, Database: "batch", User: "u", Password: "p"},
			want: "postgres://u:p@db:5432/batch?sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Type: "mysql", Host: "db", Port: 3306, Database: "batch", User: "u", Password: "p"},
			want: "u:p@tcp(db:3306)/batch?parseTime=true",
		},
		{
			name: "memory",
			cfg:  DatabaseConfig{Type: "memory"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnectionString())
		})
	}
}

func TestDatabaseConfig_IsMemory(t *testing.T) {
	assert.True(t, DatabaseConfig{}.IsMemory())
	assert.True(t, DatabaseConfig{Type: "MEMORY"}.IsMemory())
	assert.False(t, DatabaseConfig{Type: "postgres"}.IsMemory())
}
