package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/job/incrementer"
	jsl "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/jsl"
	jobListener "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/listener"
	stepListener "github.com/tigerroll/go_batch_tutorial/pkg/batch/step/listener"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

type propertyTasklet struct {
	properties map[string]string
}

func (t *propertyTasklet) Execute(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) (core.ExitStatus, error) {
	if t.properties["fail"] == "true" {
		return core.ExitStatusFailed, errors.New("step1 で失敗します")
	}
	return core.ExitStatusCompleted, nil
}

func (t *propertyTasklet) Close(ctx context.Context) error { return nil }

func newTestFactory(t *testing.T) *JobFactory {
	t.Helper()
	definitions := map[string]jsl.Job{
		"stepNextJob": {
			ID:   "stepNextJob",
			Name: "stepNextJob",
			Steps: []jsl.Step{
				{ID: "step1", Tasklet: jsl.ComponentRef{Ref: "propertyTasklet"}},
				{ID: "step2", Tasklet: jsl.ComponentRef{Ref: "propertyTasklet"}},
				{ID: "step3", Tasklet: jsl.ComponentRef{Ref: "propertyTasklet"}},
			},
		},
		"simpleJob": {
			ID:                 "simpleJob",
			Name:               "simpleJob",
			RequiredParameters: []string{"requestDate"},
			Listeners:          []jsl.ComponentRef{{Ref: "loggingJobListener"}},
			StepListeners:      []jsl.ComponentRef{{Ref: "loggingStepListener"}},
			Incrementer:        jsl.ComponentRef{Ref: "runIdIncrementer"},
			Steps: []jsl.Step{
				{ID: "simpleStep1", Tasklet: jsl.ComponentRef{Ref: "propertyTasklet", Properties: map[string]string{"fail": "true"}}},
			},
		},
		"brokenJob": {
			ID:    "brokenJob",
			Name:  "brokenJob",
			Steps: []jsl.Step{{ID: "s", Tasklet: jsl.ComponentRef{Ref: "unregistered"}}},
		},
	}
	f := NewJobFactory(config.NewConfig(), definitions)
	f.RegisterComponentBuilder("propertyTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		return &propertyTasklet{properties: properties}, nil
	})
	return f
}

func TestJobFactory_CreateJob(t *testing.T) {
	f := newTestFactory(t)

	def, err := f.CreateJob("stepNextJob")
	require.NoError(t, err)
	assert.Equal(t, "stepNextJob", def.Name)
	assert.Equal(t, []string{"step1", "step2", "step3"}, def.StepNames())
	assert.Nil(t, def.Validator)
	assert.Empty(t, def.JobListeners)

	def, err = f.CreateJob("simpleJob")
	require.NoError(t, err)
	assert.Equal(t, []string{"simpleStep1"}, def.StepNames())
	require.NotNil(t, def.Validator)
	assert.ErrorIs(t, def.Validator.Validate(core.EmptyJobParameters()), exception.ErrInvalidParameters)
	require.Len(t, def.JobListeners, 1)
	assert.IsType(t, &jobListener.LoggingJobListener{}, def.JobListeners[0])
	require.Len(t, def.StepListeners, 1)
	assert.IsType(t, &stepListener.LoggingStepListener{}, def.StepListeners[0])

	// JSL のプロパティが Tasklet に渡される
	err = def.Steps[0].Execute(context.Background(), core.EmptyJobParameters(), core.ExecutionContext{})
	assert.ErrorContains(t, err, "step1 で失敗します")
}

func TestJobFactory_CreateJob_Errors(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.CreateJob("unknownJob")
	assert.ErrorIs(t, err, exception.ErrJobNotFound)

	_, err = f.CreateJob("brokenJob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "コンポーネント 'unregistered' のビルダーが登録されていません")
}

func TestJobFactory_GetJobParametersIncrementer(t *testing.T) {
	f := newTestFactory(t)

	inc, err := f.GetJobParametersIncrementer("simpleJob")
	require.NoError(t, err)
	assert.IsType(t, &incrementer.RunIDIncrementer{}, inc)

	inc, err = f.GetJobParametersIncrementer("stepNextJob")
	require.NoError(t, err)
	assert.Nil(t, inc)

	_, err = f.GetJobParametersIncrementer("unknownJob")
	assert.ErrorIs(t, err, exception.ErrJobNotFound)
}

func TestJobFactory_JobNames(t *testing.T) {
	assert.Equal(t, []string{"brokenJob", "simpleJob", "stepNextJob"}, newTestFactory(t).JobNames())
}
