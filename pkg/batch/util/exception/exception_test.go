package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

func TestBatchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *exception.BatchError
		expected string
	}{
		{
			name:     "without original error",
			err:      exception.NewBatchError("job_launcher", "起動に失敗しました", nil, false, false),
			expected: "[job_launcher] 起動に失敗しました",
		},
		{
			name:     "with original error",
			err:      exception.NewBatchError("job_repository", "保存に失敗しました", errors.New("db down"), true, false),
			expected: "[job_repository] 保存に失敗しました: db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestNewBatchErrorf_TrailingErrorBecomesOriginal(t *testing.T) {
	cause := errors.New("boom")
	err := exception.NewBatchErrorf("config", "キー '%s' が不正です", "job_name", cause)

	assert.Equal(t, "キー 'job_name' が不正です", err.Message)
	assert.Same(t, cause, err.OriginalErr)
	assert.True(t, errors.Is(err, cause))
	assert.False(t, err.IsRetryable())
	assert.False(t, err.IsSkippable())
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	stepErr := errors.New("step1 で失敗します")
	err := exception.NewBatchError("job_launcher", "ステップが失敗しました", errors.Join(exception.ErrStepFailure, stepErr), false, false)
	wrapped := fmt.Errorf("run: %w", err)

	assert.ErrorIs(t, wrapped, exception.ErrStepFailure)
	assert.ErrorIs(t, wrapped, stepErr)
	assert.NotErrorIs(t, wrapped, exception.ErrAlreadyCompleted)

	var be *exception.BatchError
	require.ErrorAs(t, wrapped, &be)
	assert.Equal(t, "job_launcher", be.Module)
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(exception.NewBatchError("database", "ping", nil, true, false)))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error")))
}
