package jsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

const tutorialJSL = `
jobs:
  - id: stepNextJob
    steps:
      - id: step1
        tasklet:
          ref: bannerTasklet
          properties:
            message: "This is Step1"
      - id: step2
        tasklet:
          ref: bannerTasklet
  - id: simpleJob
    name: simpleJob
    required-parameters: [requestDate]
    listeners:
      - ref: loggingJobListener
    step-listeners:
      - ref: loggingStepListener
    incrementer:
      ref: runIdIncrementer
    steps:
      - id: simpleStep1
        tasklet:
          ref: requestDateTasklet
          properties:
            fail: "true"
`

func TestLoadJSLDefinitionsFromBytes(t *testing.T) {
	jobs, err := LoadJSLDefinitionsFromBytes([]byte(tutorialJSL))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	stepNext := jobs["stepNextJob"]
	assert.Equal(t, "stepNextJob", stepNext.Name)
	require.Len(t, stepNext.Steps, 2)
	assert.Equal(t, "step1", stepNext.Steps[0].ID)
	assert.Equal(t, "bannerTasklet", stepNext.Steps[0].Tasklet.Ref)
	assert.Equal(t, "This is Step1", stepNext.Steps[0].Tasklet.Properties["message"])

	simple := jobs["simpleJob"]
	assert.Equal(t, []string{"requestDate"}, simple.RequiredParameters)
	assert.Equal(t, "loggingJobListener", simple.Listeners[0].Ref)
	assert.Equal(t, "loggingStepListener", simple.StepListeners[0].Ref)
	assert.Equal(t, "runIdIncrementer", simple.Incrementer.Ref)
	assert.Equal(t, "true", simple.Steps[0].Tasklet.Properties["fail"])
}

func TestLoadJSLDefinitionsFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no jobs", "jobs: []"},
		{"missing job id", "jobs:\n  - steps:\n      - id: s\n        tasklet: {ref: t}"},
		{"duplicate job id", "jobs:\n  - id: a\n    steps: [{id: s, tasklet: {ref: t}}]\n  - id: a\n    steps: [{id: s, tasklet: {ref: t}}]"},
		{"no steps", "jobs:\n  - id: a"},
		{"missing step id", "jobs:\n  - id: a\n    steps: [{tasklet: {ref: t}}]"},
		{"duplicate step id", "jobs:\n  - id: a\n    steps: [{id: s, tasklet: {ref: t}}, {id: s, tasklet: {ref: t}}]"},
		{"missing tasklet ref", "jobs:\n  - id: a\n    steps: [{id: s}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSLDefinitionsFromBytes([]byte(tt.yaml))
			assert.ErrorIs(t, err, exception.ErrInvalidJobDefinition)
		})
	}
}

func TestLoadJSLDefinitionsFromBytes_ParseError(t *testing.T) {
	_, err := LoadJSLDefinitionsFromBytes([]byte("jobs: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSL ファイルのパースに失敗しました")
}
