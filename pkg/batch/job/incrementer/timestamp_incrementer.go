package incrementer

import (
	"fmt"
	"strconv"
	"time"

	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// DefaultTimestampKey は TimestampIncrementer が使用するデフォルトのパラメータ名です。
const DefaultTimestampKey = "timestamp"

// TimestampIncrementer はパラメータに現在時刻の Unix ミリ秒を設定する JobParametersIncrementer の実装です。
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer は新しい TimestampIncrementer のインスタンスを作成します。
// name が空の場合は "timestamp" を使用します。
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = DefaultTimestampKey
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext は previous の他のパラメータを引き継ぎ、タイムスタンプを更新したパラメータを返します。
// 直近の値以下になる場合は直近の値 + 1 を設定し、同じパラメータが生成されないようにします。
func (i *TimestampIncrementer) GetNext(previous core.JobParameters) core.JobParameters {
	timestamp := i.now().UnixMilli()
	if current, ok := previous.Get(i.name); ok {
		if last, err := strconv.ParseInt(current, 10, 64); err == nil && timestamp <= last {
			timestamp = last + 1
		}
	}
	logger.Debugf("JobParametersIncrementer '%s': '%s' を %d に設定しました。", i, i.name, timestamp)
	return previous.With(i.name, strconv.FormatInt(timestamp, 10))
}

// String は TimestampIncrementer の文字列表現を返します。
func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var _ core.JobParametersIncrementer = (*TimestampIncrementer)(nil)
