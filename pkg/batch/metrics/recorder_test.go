package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	params := core.NewJobParameters(map[string]string{"requestDate": "20200327"})
	execution := core.NewJobExecution(core.NewJobInstance("simpleJob", params))
	execCtx := core.ExecutionContext{JobName: "simpleJob", StepName: "simpleStep1"}

	r.BeforeJob(ctx, execution)
	r.BeforeStep(ctx, execCtx)
	r.AfterStep(ctx, execCtx, core.StepResult{StepName: "simpleStep1", Status: core.BatchStatusFailed})
	end := execution.StartTime.Add(2 * time.Second)
	execution.Status = core.BatchStatusFailed
	execution.EndTime = &end
	r.AfterJob(ctx, execution)
	r.OnAlreadyCompleted(ctx, "simpleJob", params)
	r.OnAlreadyCompleted(ctx, "simpleJob", params)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("simpleJob", "FAILED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("simpleJob", "COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepResults.WithLabelValues("simpleJob", "simpleStep1", "FAILED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rejectedRuns.WithLabelValues("simpleJob")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.jobDuration))

	count, err := testutil.GatherAndCount(reg, "batch_job_executions_total", "batch_step_results_total", "batch_job_rejected_total")
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
}
