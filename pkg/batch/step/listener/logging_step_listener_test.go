package listener

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

func TestLoggingStepListener(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	l := NewLoggingStepListener()
	execCtx := core.ExecutionContext{JobName: "simpleJob", StepName: "simpleStep1"}
	now := time.Now()

	l.BeforeStep(context.Background(), execCtx)
	l.AfterStep(context.Background(), execCtx, core.StepResult{StepName: "simpleStep1", Status: core.BatchStatusFailed, FailureDetail: "step1 で失敗します", StartTime: now, EndTime: now})

	out := buf.String()
	assert.Contains(t, out, "ステップ 'simpleStep1' (Job: simpleJob) を実行します。")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "step1 で失敗します")
}
