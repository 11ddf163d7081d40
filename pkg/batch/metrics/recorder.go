// Package metrics はジョブとステップの実行結果を Prometheus のメトリクスとして記録します。
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
)

const namespace = "batch"

// Recorder はジョブ・ステップのリスナーとして登録し、実行結果をメトリクスに反映します。
type Recorder struct {
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	stepResults  *prometheus.CounterVec
	rejectedRuns *prometheus.CounterVec
}

// NewRecorder は reg にメトリクスを登録した Recorder を作成します。
// reg が nil の場合は prometheus.DefaultRegisterer を使用します。
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_executions_total",
			Help:      "終了した JobExecution の数 (ジョブ名・ステータス別)",
		}, []string{"job_name", "status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_execution_duration_seconds",
			Help:      "JobExecution の所要時間",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_name", "status"}),
		stepResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "記録されたステップ結果の数 (ジョブ名・ステップ名・ステータス別)",
		}, []string{"job_name", "step_name", "status"}),
		rejectedRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_rejected_total",
			Help:      "完了済みの JobInstance のため拒否された実行の数",
		}, []string{"job_name"}),
	}
}

func (r *Recorder) BeforeJob(ctx context.Context, jobExecution *core.JobExecution) {}

func (r *Recorder) AfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	status := string(jobExecution.Status)
	r.jobRuns.WithLabelValues(jobExecution.JobName, status).Inc()

	end := time.Now()
	if jobExecution.EndTime != nil {
		end = *jobExecution.EndTime
	}
	r.jobDuration.WithLabelValues(jobExecution.JobName, status).Observe(end.Sub(jobExecution.StartTime).Seconds())
}

func (r *Recorder) BeforeStep(ctx context.Context, execCtx core.ExecutionContext) {}

func (r *Recorder) AfterStep(ctx context.Context, execCtx core.ExecutionContext, result core.StepResult) {
	r.stepResults.WithLabelValues(execCtx.JobName, execCtx.StepName, string(result.Status)).Inc()
}

func (r *Recorder) OnAlreadyCompleted(ctx context.Context, jobName string, params core.JobParameters) {
	r.rejectedRuns.WithLabelValues(jobName).Inc()
}

var (
	_ core.JobExecutionListener  = (*Recorder)(nil)
	_ core.StepExecutionListener = (*Recorder)(nil)
	_ core.JobRejectionListener  = (*Recorder)(nil)
)
