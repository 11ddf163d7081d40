package tasklet

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// LogTasklet はメッセージと requestDate パラメータをログに出力する Tasklet です。
//
// JSL で指定できるプロパティ:
//
//	message:          ログに出力するメッセージ (例: "This is Step1")
//	log-request-date: "true" の場合、JobParameters の requestDate をログに出力する
//	fail:             "true" の場合、ログ出力後に失敗する
type LogTasklet struct {
	message        string
	logRequestDate bool
	fail           bool
}

// NewLogTasklet は JSL のプロパティから新しい LogTasklet のインスタンスを作成します。
// ComponentBuilder のシグネチャに合わせ、cfg を受け取りますが、現時点では利用しません。
func NewLogTasklet(cfg *config.Config, properties map[string]string) (*LogTasklet, error) {
	t := &LogTasklet{message: properties["message"]}

	var err error
	if t.logRequestDate, err = boolProperty(properties, "log-request-date"); err != nil {
		return nil, err
	}
	if t.fail, err = boolProperty(properties, "fail"); err != nil {
		return nil, err
	}
	return t, nil
}

func boolProperty(properties map[string]string, key string) (bool, error) {
	v, ok := properties[key]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, exception.NewBatchError("log_tasklet", fmt.Sprintf("プロパティ '%s' の値 '%s' が不正です", key, v), err, false, false)
	}
	return b, nil
}

// Execute はメッセージをログに出力します。
func (t *LogTasklet) Execute(ctx context.Context, params core.JobParameters, execCtx core.ExecutionContext) (core.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		logger.Warnf("LogTasklet '%s': Context がキャンセルされたため中断します: %v", execCtx.StepName, err)
		return core.ExitStatusFailed, err
	}

	if t.message != "" {
		logger.Infof(">>>>> %s", t.message)
	}
	if t.logRequestDate {
		logger.Infof(">>>>> requestDate = %s", params.GetString("requestDate", ""))
	}
	if t.fail {
		return core.ExitStatusFailed, errors.New("step1 で失敗します")
	}
	return core.ExitStatusCompleted, nil
}

// Close は Tasklet が使用するリソースを解放します。
func (t *LogTasklet) Close(ctx context.Context) error {
	logger.Debugf("LogTasklet.Close が呼び出されました。")
	return nil
}

var _ core.Tasklet = (*LogTasklet)(nil)
