package initializer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/database"
	factory "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/factory"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/job/joblauncher"
	batch_joboperator "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/joboperator"
	jsl "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/jsl"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/metrics"
	repository "github.com/tigerroll/go_batch_tutorial/pkg/batch/repository"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/job"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "initializer"

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
type BatchInitializer struct {
	Config             *config.Config
	JSLDefinitionBytes []byte // JSL定義のバイトスライス

	// MetricsRegistry はジョブのメトリクスを登録するレジストリです。nil の場合は Initialize で作成されます。
	MetricsRegistry *prometheus.Registry

	JobRepository job.JobRepository
	JobFactory    *factory.JobFactory
	JobLauncher   *joblauncher.SimpleJobLauncher
	JobOperator   batch_joboperator.JobOperator

	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
// cfg.EmbeddedConfig に埋め込み設定 (application.yaml) を設定して渡します。
func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{
		Config: cfg,
		sleep:  sleepContext,
	}
}

// Initialize はバッチアプリケーションの初期化処理を実行します。
// .env ファイルのロードは呼び出し元 (application.go) で行います。
func (bi *BatchInitializer) Initialize(ctx context.Context) (batch_joboperator.JobOperator, *factory.JobFactory, error) {
	logger.Debugf("BatchInitializer.Initialize が呼び出されました。")

	// Step 1: 設定のロード
	cfg, err := config.NewBytesConfigLoader(bi.Config.EmbeddedConfig).Load()
	if err != nil {
		return nil, nil, exception.NewBatchError(module, "設定のロードに失敗しました", err, false, false)
	}
	bi.Config = cfg

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Infof("ロギングレベルを '%s' に設定しました。", cfg.System.Logging.Level)
	applyTimezone(cfg.System.Timezone)

	// Step 2: マイグレーションと Job Repository の生成 (リトライ付き)
	if !cfg.Database.IsMemory() {
		err := bi.withRetry(ctx, "マイグレーション", func() error {
			return database.RunMigrations(cfg.Database)
		})
		if err != nil {
			return nil, nil, exception.NewBatchError(module, "バッチフレームワークのマイグレーションに失敗しました", err, false, false)
		}
	}

	err = bi.withRetry(ctx, "Job Repository の生成", func() error {
		repo, err := repository.NewJobRepository(ctx, cfg.Database)
		if err != nil {
			return err
		}
		bi.JobRepository = repo
		return nil
	})
	if err != nil {
		return nil, nil, exception.NewBatchError(module, "Job Repository の生成に失敗しました", err, false, false)
	}
	logger.Infof("Job Repository を生成しました (Type: %s)。", cfg.Database.Type)

	// Step 3: JSL 定義のロード
	definitions, err := jsl.LoadJSLDefinitionsFromBytes(bi.JSLDefinitionBytes)
	if err != nil {
		return nil, nil, exception.NewBatchError(module, "JSL 定義のロードに失敗しました", err, false, false)
	}

	// Step 4: JobFactory の生成 (コンポーネントビルダーは呼び出し元で登録)
	bi.JobFactory = factory.NewJobFactory(cfg, definitions)
	logger.Debugf("JobFactory を生成しました。ジョブ: %v", bi.JobFactory.JobNames())

	// Step 5: JobLauncher と JobOperator の生成
	if bi.MetricsRegistry == nil {
		bi.MetricsRegistry = prometheus.NewRegistry()
	}
	recorder := metrics.NewRecorder(bi.MetricsRegistry)
	bi.JobLauncher = joblauncher.NewSimpleJobLauncher(bi.JobRepository,
		joblauncher.WithJobListeners(recorder),
		joblauncher.WithStepListeners(recorder),
	)
	bi.JobOperator = batch_joboperator.NewDefaultJobOperator(bi.JobRepository, bi.JobFactory, bi.JobLauncher)
	logger.Infof("DefaultJobOperator を生成しました。")

	return bi.JobOperator, bi.JobFactory, nil
}

// withRetry は一時的なエラーの間、設定された回数まで op を再試行します。待機時間は試行ごとに倍になります。
func (bi *BatchInitializer) withRetry(ctx context.Context, name string, op func() error) error {
	maxAttempts := bi.Config.Batch.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := time.Duration(bi.Config.Batch.Retry.InitialInterval) * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.Debugf("%s を試行中 (試行 %d/%d)...", name, attempt, maxAttempts)
		if err = op(); err == nil {
			return nil
		}
		if !exception.IsTemporary(err) || attempt == maxAttempts {
			break
		}
		logger.Warnf("%s に失敗しました。%v 後に再試行します: %v", name, delay, err)
		if sleepErr := bi.sleep(ctx, delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
		delay *= 2
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func applyTimezone(name string) {
	if name == "" {
		return
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnf("タイムゾーン '%s' の読み込みに失敗しました。システムのタイムゾーンで続行します: %v", name, err)
		return
	}
	time.Local = loc
	logger.Debugf("タイムゾーンを '%s' に設定しました。", name)
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	if bi.JobRepository == nil {
		return nil
	}
	if err := bi.JobRepository.Close(); err != nil {
		logger.Errorf("Job Repository のクローズに失敗しました: %v", err)
		return fmt.Errorf("Job Repository クローズエラー: %w", err)
	}
	logger.Infof("Job Repository を正常にクローズしました。")
	return nil
}
