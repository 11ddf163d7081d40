package listener

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

func TestLoggingJobListener(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	params := core.NewJobParameters(map[string]string{"requestDate": "20200327"})
	execution := core.NewJobExecution(core.NewJobInstance("simpleJob", params))
	l := NewLoggingJobListener()

	l.BeforeJob(context.Background(), execution)
	execution.Status = core.BatchStatusCompleted
	l.AfterJob(context.Background(), execution)
	l.OnAlreadyCompleted(context.Background(), "simpleJob", params)

	out := buf.String()
	assert.Contains(t, out, "Job 'simpleJob' の実行を開始します。")
	assert.Contains(t, out, "Job 'simpleJob' の実行が正常に完了しました。")
	assert.Contains(t, out, "{requestDate=20200327}")
}
