package initializer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/memory"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

const testApplicationYAML = `
database:
  type: memory
batch:
  job_name: stepNextJob
system:
  timezone: UTC
  logging:
    level: DEBUG
`

const testJSL = `
jobs:
  - id: stepNextJob
    listeners:
      - ref: loggingJobListener
    steps:
      - id: step1
        tasklet: {ref: noopTasklet}
      - id: step2
        tasklet: {ref: noopTasklet}
`

type noopTasklet struct{}

func (noopTasklet) Execute(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) (core.ExitStatus, error) {
	return core.ExitStatusCompleted, nil
}

func (noopTasklet) Close(ctx context.Context) error { return nil }

func newTestInitializer() *BatchInitializer {
	cfg := config.NewConfig()
	cfg.EmbeddedConfig = config.EmbeddedConfig(testApplicationYAML)
	bi := NewBatchInitializer(cfg)
	bi.JSLDefinitionBytes = []byte(testJSL)
	return bi
}

func TestBatchInitializer_Initialize(t *testing.T) {
	ctx := context.Background()
	bi := newTestInitializer()

	op, jobFactory, err := bi.Initialize(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, bi.Close()) })

	assert.Equal(t, "stepNextJob", bi.Config.Batch.JobName)
	assert.IsType(t, &memory.InMemoryJobRepository{}, bi.JobRepository)
	assert.Equal(t, []string{"stepNextJob"}, jobFactory.JobNames())

	jobFactory.RegisterComponentBuilder("noopTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		return noopTasklet{}, nil
	})

	outcome, err := op.Start(ctx, "stepNextJob", core.EmptyJobParameters())
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, outcome.Status)
	assert.Len(t, outcome.StepResults, 2)

	// ジョブの実行結果がメトリクスに記録される
	count, err := testutil.GatherAndCount(bi.MetricsRegistry, "batch_job_executions_total", "batch_step_results_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count) // ジョブ 1 系列 + ステップ 2 系列
}

func TestBatchInitializer_InvalidJSL(t *testing.T) {
	bi := newTestInitializer()
	bi.JSLDefinitionBytes = []byte("jobs: []")

	_, _, err := bi.Initialize(context.Background())
	assert.ErrorIs(t, err, exception.ErrInvalidJobDefinition)
}

func TestBatchInitializer_UnsupportedDatabase(t *testing.T) {
	bi := newTestInitializer()
	bi.Config.EmbeddedConfig = config.EmbeddedConfig("database:\n  type: snowflake\n")

	_, _, err := bi.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "マイグレーション")
}

func TestBatchInitializer_WithRetry(t *testing.T) {
	temporary := exception.NewBatchError("test", "connection refused", errors.New("dial tcp"), true, false)
	permanent := errors.New("authentication failed")

	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantDelays   []time.Duration
		wantErr      error
	}{
		{"succeeds first time", []error{nil}, 1, nil, nil},
		{"retries temporary errors", []error{temporary, temporary, nil}, 3, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, nil},
		{"gives up after max attempts", []error{temporary, temporary, temporary, temporary}, 3, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, temporary},
		{"does not retry permanent errors", []error{permanent, nil}, 1, nil, permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bi := NewBatchInitializer(config.NewConfig())
			bi.Config.Batch.Retry = config.RetryConfig{MaxAttempts: 3, InitialInterval: 100}
			var delays []time.Duration
			bi.sleep = func(ctx context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}

			attempts := 0
			err := bi.withRetry(context.Background(), "test", func() error {
				err := tt.errs[attempts]
				attempts++
				return err
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantDelays, delays)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBatchInitializer_WithRetryStopsOnCancel(t *testing.T) {
	bi := NewBatchInitializer(config.NewConfig())
	bi.Config.Batch.Retry = config.RetryConfig{MaxAttempts: 5, InitialInterval: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := bi.withRetry(ctx, "test", func() error {
		attempts++
		return exception.NewBatchError("test", "timeout", nil, true, false)
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
