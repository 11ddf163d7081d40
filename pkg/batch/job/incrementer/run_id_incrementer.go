package incrementer

import (
	"fmt"
	"strconv"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// DefaultRunIDKey は RunIDIncrementer が使用するデフォルトのパラメータ名です。
const DefaultRunIDKey = "run.id"

// RunIDIncrementer は直近のパラメータの "run.id" をインクリメントする JobParametersIncrementer の実装です。
// "run.id" が存在しない場合や数値として解釈できない場合は 1 を設定します。
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer は新しい RunIDIncrementer のインスタンスを作成します。
// name が空の場合は "run.id" を使用します。
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{name: name}
}

// GetNext は previous の他のパラメータを引き継ぎ、"run.id" を次の値にしたパラメータを返します。
func (i *RunIDIncrementer) GetNext(previous core.JobParameters) core.JobParameters {
	current, ok := previous.Get(i.name)
	if !ok {
		logger.Debugf("JobParametersIncrementer '%s': '%s' が見つからないため、1 を設定しました。", i, i.name)
		return previous.With(i.name, "1")
	}

	n, err := strconv.ParseInt(current, 10, 64)
	if err != nil {
		logger.Warnf("JobParametersIncrementer '%s': '%s' の値 '%s' が数値ではないため、1 を設定しました。", i, i.name, current)
		return previous.With(i.name, "1")
	}
	next := strconv.FormatInt(n+1, 10)
	logger.Debugf("JobParametersIncrementer '%s': '%s' を %d から %s にインクリメントしました。", i, i.name, n, next)
	return previous.With(i.name, next)
}

// String は RunIDIncrementer の文字列表現を返します。
func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

var _ core.JobParametersIncrementer = (*RunIDIncrementer)(nil)
