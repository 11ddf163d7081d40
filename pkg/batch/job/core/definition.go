package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

// StepFunc は関数を Step として扱うためのアダプターです。
type StepFunc func(ctx context.Context, params JobParameters, execCtx ExecutionContext) error

type funcStep struct {
	name string
	fn   StepFunc
}

// NewStep は名前と関数から Step を作成します。
func NewStep(name string, fn StepFunc) Step {
	return &funcStep{name: name, fn: fn}
}

func (s *funcStep) StepName() string { return s.name }

func (s *funcStep) Execute(ctx context.Context, params JobParameters, execCtx ExecutionContext) error {
	return s.fn(ctx, params, execCtx)
}

// JobDefinition はジョブ名と順序付きのステップ列です。
// 起動時に一度だけ組み立て、以降は変更しません。
type JobDefinition struct {
	Name      string
	Steps     []Step
	Validator JobParametersValidator // 任意

	// ジョブ固有のリスナー (任意)。JobLauncher に登録されたリスナーの後に呼び出されます。
	JobListeners  []JobExecutionListener
	StepListeners []StepExecutionListener
}

// NewJobDefinition は JobDefinition を作成し、構成を検証します。
func NewJobDefinition(name string, steps ...Step) (JobDefinition, error) {
	def := JobDefinition{Name: name, Steps: append([]Step(nil), steps...)}
	if err := def.Validate(); err != nil {
		return JobDefinition{}, err
	}
	return def, nil
}

// Validate はジョブ名とステップ構成を検証します。
func (d JobDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return exception.NewBatchError("job_definition", "ジョブ名が空です", exception.ErrInvalidJobDefinition, false, false)
	}
	if len(d.Steps) == 0 {
		return exception.NewBatchError("job_definition", fmt.Sprintf("ジョブ '%s' にステップがありません", d.Name), exception.ErrInvalidJobDefinition, false, false)
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for i, s := range d.Steps {
		if s == nil {
			return exception.NewBatchError("job_definition", fmt.Sprintf("ジョブ '%s' の %d 番目のステップが nil です", d.Name, i+1), exception.ErrInvalidJobDefinition, false, false)
		}
		if _, dup := seen[s.StepName()]; dup {
			return exception.NewBatchError("job_definition", fmt.Sprintf("ジョブ '%s' のステップ名 '%s' が重複しています", d.Name, s.StepName()), exception.ErrInvalidJobDefinition, false, false)
		}
		seen[s.StepName()] = struct{}{}
	}
	return nil
}

// StepNames は定義順のステップ名を返します。
func (d JobDefinition) StepNames() []string {
	names := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		names = append(names, s.StepName())
	}
	return names
}

// JobBuilder は JobDefinition を組み立てるためのビルダーです。
//
//	def, err := core.NewJobBuilder("stepNextJob").Start(step1).Next(step2).Next(step3).Build()
type JobBuilder struct {
	name          string
	steps         []Step
	validator     JobParametersValidator
	jobListeners  []JobExecutionListener
	stepListeners []StepExecutionListener
}

// NewJobBuilder は新しい JobBuilder を作成します。
func NewJobBuilder(name string) *JobBuilder {
	return &JobBuilder{name: name}
}

// Start は最初のステップを設定します。既に追加されたステップは破棄されます。
func (b *JobBuilder) Start(step Step) *JobBuilder {
	b.steps = []Step{step}
	return b
}

// Next は次のステップを追加します。
func (b *JobBuilder) Next(step Step) *JobBuilder {
	b.steps = append(b.steps, step)
	return b
}

// Validator は JobParametersValidator を設定します。
func (b *JobBuilder) Validator(v JobParametersValidator) *JobBuilder {
	b.validator = v
	return b
}

// JobListener は JobExecutionListener を追加します。
func (b *JobBuilder) JobListener(l JobExecutionListener) *JobBuilder {
	b.jobListeners = append(b.jobListeners, l)
	return b
}

// StepListener は StepExecutionListener を追加します。
func (b *JobBuilder) StepListener(l StepExecutionListener) *JobBuilder {
	b.stepListeners = append(b.stepListeners, l)
	return b
}

// Build は JobDefinition を作成します。
func (b *JobBuilder) Build() (JobDefinition, error) {
	def, err := NewJobDefinition(b.name, b.steps...)
	if err != nil {
		return JobDefinition{}, err
	}
	def.Validator = b.validator
	def.JobListeners = append([]JobExecutionListener(nil), b.jobListeners...)
	def.StepListeners = append([]StepExecutionListener(nil), b.stepListeners...)
	return def, nil
}

// RequiredKeysValidator は必須キーの存在を検証する JobParametersValidator です。
type RequiredKeysValidator struct {
	Keys []string
}

// Validate は必須キーが欠けていればエラーを返します。
func (v RequiredKeysValidator) Validate(params JobParameters) error {
	var missing []string
	for _, k := range v.Keys {
		if _, ok := params.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return exception.NewBatchError("job_parameters",
			fmt.Sprintf("必須パラメータ %v が指定されていません", missing), exception.ErrInvalidParameters, false, false)
	}
	return nil
}
