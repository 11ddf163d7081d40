package step_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/step"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

// MockTasklet は core.Tasklet インターフェースのモック実装です。
type MockTasklet struct {
	mock.Mock
}

func (m *MockTasklet) Execute(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) (core.ExitStatus, error) {
	args := m.Called(ctx, params, execCtx)
	return args.Get(0).(core.ExitStatus), args.Error(1)
}

func (m *MockTasklet) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestTaskletStep_Execute(t *testing.T) {
	taskletErr := errors.New("step1 で失敗します")
	closeErr := errors.New("close failed")

	tests := []struct {
		name        string
		mockSetup   func(m *MockTasklet)
		wantErr     bool
		wantErrIs   error
		wantMessage string
	}{
		{
			name: "completed",
			mockSetup: func(m *MockTasklet) {
				m.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(core.ExitStatusCompleted, nil).Once()
				m.On("Close", mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "tasklet error",
			mockSetup: func(m *MockTasklet) {
				m.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(core.ExitStatusFailed, taskletErr).Once()
				m.On("Close", mock.Anything).Return(nil).Once()
			},
			wantErr:     true,
			wantErrIs:   taskletErr,
			wantMessage: "Tasklet 実行エラー",
		},
		{
			name: "non-completed exit status",
			mockSetup: func(m *MockTasklet) {
				m.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(core.ExitStatusUnknown, nil).Once()
				m.On("Close", mock.Anything).Return(nil).Once()
			},
			wantErr:     true,
			wantMessage: "UNKNOWN",
		},
		{
			name: "close error fails an otherwise completed step",
			mockSetup: func(m *MockTasklet) {
				m.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(core.ExitStatusCompleted, nil).Once()
				m.On("Close", mock.Anything).Return(closeErr).Once()
			},
			wantErr:   true,
			wantErrIs: closeErr,
		},
		{
			name: "close error does not hide the tasklet error",
			mockSetup: func(m *MockTasklet) {
				m.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(core.ExitStatusFailed, taskletErr).Once()
				m.On("Close", mock.Anything).Return(closeErr).Once()
			},
			wantErr:   true,
			wantErrIs: taskletErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasklet := new(MockTasklet)
			tt.mockSetup(tasklet)
			s := step.NewTaskletStep("step1", tasklet)

			err := s.Execute(context.Background(), core.EmptyJobParameters(), core.ExecutionContext{StepName: "step1"})

			assert.Equal(t, "step1", s.StepName())
			if !tt.wantErr {
				assert.NoError(t, err)
			} else {
				var be *exception.BatchError
				assert.ErrorAs(t, err, &be)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				if tt.wantMessage != "" {
					assert.Contains(t, err.Error(), tt.wantMessage)
				}
			}
			tasklet.AssertExpectations(t)
		})
	}
}
