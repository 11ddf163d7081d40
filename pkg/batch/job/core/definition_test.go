package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

func noop(name string) core.Step {
	return core.NewStep(name, func(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) error {
		return nil
	})
}

func TestNewJobDefinition(t *testing.T) {
	tests := []struct {
		name    string
		jobName string
		steps   []core.Step
		wantErr bool
	}{
		{name: "valid", jobName: "stepNextJob", steps: []core.Step{noop("step1"), noop("step2"), noop("step3")}},
		{name: "empty name", jobName: " ", steps: []core.Step{noop("step1")}, wantErr: true},
		{name: "no steps", jobName: "simpleJob", wantErr: true},
		{name: "nil step", jobName: "simpleJob", steps: []core.Step{noop("step1"), nil}, wantErr: true},
		{name: "duplicate step", jobName: "simpleJob", steps: []core.Step{noop("step1"), noop("step1")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := core.NewJobDefinition(tt.jobName, tt.steps...)
			if tt.wantErr {
				assert.ErrorIs(t, err, exception.ErrInvalidJobDefinition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.jobName, def.Name)
			assert.Equal(t, []string{"step1", "step2", "step3"}, def.StepNames())
		})
	}
}

func TestJobBuilder(t *testing.T) {
	validator := core.RequiredKeysValidator{Keys: []string{"requestDate"}}
	def, err := core.NewJobBuilder("simpleJob").
		Start(noop("simpleStep1")).
		Next(noop("simpleStep2")).
		Validator(validator).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"simpleStep1", "simpleStep2"}, def.StepNames())
	assert.NotNil(t, def.Validator)

	_, err = core.NewJobBuilder("emptyJob").Build()
	assert.ErrorIs(t, err, exception.ErrInvalidJobDefinition)
}

func TestStepFunc_PassesArguments(t *testing.T) {
	var gotDate string
	var gotCtx core.ExecutionContext
	s := core.NewStep("simpleStep1", func(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) error {
		gotDate, _ = params.Get("requestDate")
		gotCtx = execCtx
		return nil
	})

	execCtx := core.ExecutionContext{JobName: "simpleJob", JobInstanceID: "i-1", JobExecutionID: "e-1", StepName: "simpleStep1"}
	err := s.Execute(context.Background(), core.NewJobParameters(map[string]string{"requestDate": "20200327"}), execCtx)

	require.NoError(t, err)
	assert.Equal(t, "simpleStep1", s.StepName())
	assert.Equal(t, "20200327", gotDate)
	assert.Equal(t, execCtx, gotCtx)
}

func TestRequiredKeysValidator(t *testing.T) {
	v := core.RequiredKeysValidator{Keys: []string{"requestDate"}}

	assert.NoError(t, v.Validate(core.NewJobParameters(map[string]string{"requestDate": "20200327"})))
	assert.ErrorIs(t, v.Validate(core.EmptyJobParameters()), exception.ErrInvalidParameters)
}

func TestJobExecution_Copy(t *testing.T) {
	instance := core.NewJobInstance("simpleJob", core.EmptyJobParameters())
	exec := core.NewJobExecution(instance)
	exec.StepResults = append(exec.StepResults, core.StepResult{StepName: "simpleStep1", Status: core.BatchStatusCompleted})

	c := exec.Copy()
	c.StepResults[0].Status = core.BatchStatusFailed

	assert.Equal(t, core.BatchStatusCompleted, exec.StepResults[0].Status)
	assert.Equal(t, core.BatchStatusStarted, exec.Status)
	assert.True(t, exec.IsRunning())
	assert.Equal(t, instance.ID, exec.JobInstanceID)
	assert.Equal(t, instance.Parameters.Hash(), instance.ParametersHash)
}
