package factory

import (
	"fmt"
	"sort"

	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	component "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/component"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	incrementer "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/incrementer"
	jsl "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/jsl"
	jobListener "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/listener"
	step "github.com/tigerroll/go_batch_tutorial/pkg/batch/step"
	stepListener "github.com/tigerroll/go_batch_tutorial/pkg/batch/step/listener"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "job_factory"

// JobFactory は JSL 定義と登録されたビルダーから JobDefinition を生成するためのファクトリです。
type JobFactory struct {
	config               *config.Config
	definitions          map[string]jsl.Job
	componentBuilders    map[string]component.ComponentBuilder
	jobListenerBuilders  map[string]component.JobListenerBuilder
	stepListenerBuilders map[string]component.StepListenerBuilder
	incrementerBuilders  map[string]component.IncrementerBuilder
}

// NewJobFactory は新しい JobFactory のインスタンスを作成します。
// フレームワークが提供するリスナーとインクリメンタは以下の名前で登録済みです。
//
//	loggingJobListener, loggingStepListener, runIdIncrementer, timestampIncrementer
func NewJobFactory(cfg *config.Config, definitions map[string]jsl.Job) *JobFactory {
	f := &JobFactory{
		config:               cfg,
		definitions:          definitions,
		componentBuilders:    make(map[string]component.ComponentBuilder),
		jobListenerBuilders:  make(map[string]component.JobListenerBuilder),
		stepListenerBuilders: make(map[string]component.StepListenerBuilder),
		incrementerBuilders:  make(map[string]component.IncrementerBuilder),
	}

	f.RegisterJobListenerBuilder("loggingJobListener", func(cfg *config.Config) (core.JobExecutionListener, error) {
		return jobListener.NewLoggingJobListener(), nil
	})
	f.RegisterStepListenerBuilder("loggingStepListener", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return stepListener.NewLoggingStepListener(), nil
	})
	f.RegisterIncrementerBuilder("runIdIncrementer", func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error) {
		return incrementer.NewRunIDIncrementer(properties["name"]), nil
	})
	f.RegisterIncrementerBuilder("timestampIncrementer", func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error) {
		return incrementer.NewTimestampIncrementer(properties["name"]), nil
	})
	return f
}

// RegisterComponentBuilder は、指定された名前で Tasklet のビルド関数を登録します。
// このメソッドは main.go など、アプリケーションの初期化フェーズで呼び出されます。
func (f *JobFactory) RegisterComponentBuilder(name string, builder component.ComponentBuilder) {
	f.componentBuilders[name] = builder
	logger.Debugf("JobFactory: コンポーネントビルダー '%s' を登録しました。", name)
}

// RegisterJobListenerBuilder は、指定された名前で JobExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder component.JobListenerBuilder) {
	f.jobListenerBuilders[name] = builder
	logger.Debugf("JobFactory: JobExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterStepListenerBuilder は、指定された名前で StepExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterStepListenerBuilder(name string, builder component.StepListenerBuilder) {
	f.stepListenerBuilders[name] = builder
	logger.Debugf("JobFactory: StepExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterIncrementerBuilder は、指定された名前で JobParametersIncrementer ビルド関数を登録します。
func (f *JobFactory) RegisterIncrementerBuilder(name string, builder component.IncrementerBuilder) {
	f.incrementerBuilders[name] = builder
	logger.Debugf("JobFactory: JobParametersIncrementer ビルダー '%s' を登録しました。", name)
}

// JobNames は JSL に定義されたジョブ ID をソートして返します。
func (f *JobFactory) JobNames() []string {
	names := make([]string, 0, len(f.definitions))
	for id := range f.definitions {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// CreateJob は指定されたジョブの JobDefinition を JSL 定義から作成します。
// 定義が存在しない場合は exception.ErrJobNotFound を含むエラーを返します。
func (f *JobFactory) CreateJob(jobName string) (core.JobDefinition, error) {
	logger.Debugf("JobFactory で Job '%s' の作成を試みます。", jobName)

	jslJob, ok := f.definitions[jobName]
	if !ok {
		return core.JobDefinition{}, exception.NewBatchError(module, fmt.Sprintf("指定された Job '%s' のJSL定義が見つかりません", jobName), exception.ErrJobNotFound, false, false)
	}

	builder := core.NewJobBuilder(jslJob.Name)
	for i, s := range jslJob.Steps {
		tasklet, err := f.buildTasklet(jslJob.ID, s)
		if err != nil {
			return core.JobDefinition{}, err
		}
		taskletStep := step.NewTaskletStep(s.ID, tasklet)
		if i == 0 {
			builder.Start(taskletStep)
		} else {
			builder.Next(taskletStep)
		}
	}

	for _, ref := range jslJob.Listeners {
		b, found := f.jobListenerBuilders[ref.Ref]
		if !found {
			return core.JobDefinition{}, exception.NewBatchErrorf(module, "JobExecutionListener '%s' のビルダーが登録されていません", ref.Ref)
		}
		l, err := b(f.config)
		if err != nil {
			return core.JobDefinition{}, exception.NewBatchError(module, fmt.Sprintf("JobExecutionListener '%s' のビルドに失敗しました", ref.Ref), err, false, false)
		}
		builder.JobListener(l)
		logger.Debugf("JobExecutionListener '%s' を生成しました。", ref.Ref)
	}

	for _, ref := range jslJob.StepListeners {
		b, found := f.stepListenerBuilders[ref.Ref]
		if !found {
			return core.JobDefinition{}, exception.NewBatchErrorf(module, "StepExecutionListener '%s' のビルダーが登録されていません", ref.Ref)
		}
		l, err := b(f.config)
		if err != nil {
			return core.JobDefinition{}, exception.NewBatchError(module, fmt.Sprintf("StepExecutionListener '%s' のビルドに失敗しました", ref.Ref), err, false, false)
		}
		builder.StepListener(l)
		logger.Debugf("StepExecutionListener '%s' を生成しました。", ref.Ref)
	}

	if len(jslJob.RequiredParameters) > 0 {
		builder.Validator(core.RequiredKeysValidator{Keys: append([]string(nil), jslJob.RequiredParameters...)})
	}

	def, err := builder.Build()
	if err != nil {
		return core.JobDefinition{}, exception.NewBatchError(module, fmt.Sprintf("ジョブ '%s' のインスタンス化に失敗しました", jobName), err, false, false)
	}
	logger.Debugf("Job '%s' を JSL 定義から作成しました。Steps: %v", jobName, def.StepNames())
	return def, nil
}

func (f *JobFactory) buildTasklet(jobID string, s jsl.Step) (core.Tasklet, error) {
	b, found := f.componentBuilders[s.Tasklet.Ref]
	if !found {
		return nil, exception.NewBatchErrorf(module, "ジョブ '%s' のステップ '%s': コンポーネント '%s' のビルダーが登録されていません", jobID, s.ID, s.Tasklet.Ref)
	}
	properties := s.Tasklet.Properties
	if properties == nil {
		properties = map[string]string{}
	}
	tasklet, err := b(f.config, properties)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("ジョブ '%s' のステップ '%s' の Tasklet のビルドに失敗しました", jobID, s.ID), err, false, false)
	}
	return tasklet, nil
}

// GetJobParametersIncrementer は指定されたジョブの JobParametersIncrementer を構築して返します。
// JSL に incrementer が定義されていない場合は nil を返します。
func (f *JobFactory) GetJobParametersIncrementer(jobName string) (core.JobParametersIncrementer, error) {
	jslJob, ok := f.definitions[jobName]
	if !ok {
		return nil, exception.NewBatchError(module, fmt.Sprintf("指定された Job '%s' のJSL定義が見つかりません", jobName), exception.ErrJobNotFound, false, false)
	}
	if jslJob.Incrementer.Ref == "" {
		return nil, nil
	}

	b, found := f.incrementerBuilders[jslJob.Incrementer.Ref]
	if !found {
		return nil, exception.NewBatchErrorf(module, "JobParametersIncrementer '%s' のビルダーが登録されていません", jslJob.Incrementer.Ref)
	}
	inc, err := b(f.config, jslJob.Incrementer.Properties)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobParametersIncrementer '%s' のビルドに失敗しました", jslJob.Incrementer.Ref), err, false, false)
	}
	return inc, nil
}
