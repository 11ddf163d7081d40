package component

import (
	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

// ComponentBuilder は JSL の tasklet.ref から Tasklet を生成するための関数型です。
// properties には JSL のステップで指定されたプロパティが渡されます。
type ComponentBuilder func(cfg *config.Config, properties map[string]string) (core.Tasklet, error)

// JobListenerBuilder は JobExecutionListener を生成するための関数型です。
type JobListenerBuilder func(cfg *config.Config) (core.JobExecutionListener, error)

// StepListenerBuilder は StepExecutionListener を生成するための関数型です。
type StepListenerBuilder func(cfg *config.Config) (core.StepExecutionListener, error)

// IncrementerBuilder は JobParametersIncrementer を生成するための関数型です。
type IncrementerBuilder func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error)
