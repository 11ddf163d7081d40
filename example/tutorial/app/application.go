package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	godotenv "github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appTasklet "github.com/tigerroll/go_batch_tutorial/example/tutorial/step/tasklet"
	config "github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	initializer "github.com/tigerroll/go_batch_tutorial/pkg/batch/initializer"
	core "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/core"
	factory "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/factory"
	joboperator "github.com/tigerroll/go_batch_tutorial/pkg/batch/job/joboperator"
	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

// registerApplicationComponents はアプリケーション固有のコンポーネントを JobFactory に登録します。
func registerApplicationComponents(jobFactory *factory.JobFactory) {
	jobFactory.RegisterComponentBuilder("logTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		return appTasklet.NewLogTasklet(cfg, properties)
	})
	logger.Debugf("全てのアプリケーションコンポーネントビルダーを登録しました。")
}

// setupApplication はアプリケーションの初期化処理を実行し、必要なコンポーネントを返します。
func setupApplication(ctx context.Context, envFilePath string, embeddedConfig, embeddedJSL []byte) (*initializer.BatchInitializer, joboperator.JobOperator, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env ファイル '%s' のロードに失敗しました (本番環境では環境変数を使用): %v", envFilePath, err)
		} else {
			logger.Infof(".env ファイル '%s' をロードしました。", envFilePath)
		}
	} else {
		logger.Debugf(".env ファイルのパスが指定されていないため、ロードをスキップします。")
	}

	initialCfg := &config.Config{
		EmbeddedConfig: embeddedConfig,
	}
	batchInitializer := initializer.NewBatchInitializer(initialCfg)
	batchInitializer.JSLDefinitionBytes = embeddedJSL

	jobOperator, jobFactory, initErr := batchInitializer.Initialize(ctx)
	if initErr != nil {
		// 途中まで生成されたリソースを解放
		_ = batchInitializer.Close()
		return nil, nil, exception.NewBatchError("app", "バッチアプリケーションの初期化に失敗しました", initErr, false, false)
	}
	logger.Infof("バッチアプリケーションの初期化が完了しました。")

	registerApplicationComponents(jobFactory)
	return batchInitializer, jobOperator, nil
}

// startMetricsServer は address が指定されている場合に /metrics を公開する HTTP サーバを起動します。
// 返される関数でサーバを停止します。
func startMetricsServer(batchInitializer *initializer.BatchInitializer) func() {
	address := batchInitializer.Config.System.Metrics.Address
	if address == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(batchInitializer.MetricsRegistry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("メトリクスを http://%s/metrics で公開します。", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("メトリクスサーバの起動に失敗しました: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warnf("メトリクスサーバの停止に失敗しました: %v", err)
		}
	}
}

// executeJob は設定されたジョブを実行し、その結果に基づいて終了コードを返します。
func executeJob(ctx context.Context, jobOperator joboperator.JobOperator, appConfig *config.Config, args []string) int {
	jobName := appConfig.Batch.JobName
	if jobName == "" {
		logger.Errorf("設定ファイルにジョブ名が指定されていません。")
		return 1
	}
	logger.Infof("実行する Job: '%s'", jobName)

	jobParams, err := core.ParseJobParameters(args)
	if err != nil {
		return handleApplicationError(err, nil, jobName)
	}

	outcome, startErr := jobOperator.Start(ctx, jobName, jobParams)
	return handleApplicationError(startErr, outcome, jobName)
}

// RunApplication はアプリケーションのメインロジックを実行し、終了コードを返します。
// args は key=value 形式の JobParameters です。
func RunApplication(ctx context.Context, envFilePath string, embeddedConfig, embeddedJSL []byte, args []string) int {
	batchInitializer, jobOperator, initErr := setupApplication(ctx, envFilePath, embeddedConfig, embeddedJSL)
	if initErr != nil {
		logger.Errorf("%v", initErr)
		return 1
	}

	// 初期化完了後、リソースのクローズ処理を defer で登録
	defer func() {
		if closeErr := batchInitializer.Close(); closeErr != nil {
			logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", closeErr)
		} else {
			logger.Infof("バッチアプリケーションのリソースを正常にクローズしました。")
		}
	}()

	stopMetrics := startMetricsServer(batchInitializer)
	defer stopMetrics()

	return executeJob(ctx, jobOperator, batchInitializer.Config, args)
}

// handleApplicationError はアプリケーションのエラーを処理し、適切な終了コードを返します。
func handleApplicationError(err error, outcome *core.ExecutionOutcome, jobName string) int {
	hasError := false

	if err != nil {
		hasError = true
		switch {
		case errors.Is(err, exception.ErrAlreadyCompleted):
			logger.Errorf("Job '%s' は実行されませんでした: %v", jobName, err)
		case outcome != nil:
			logger.Errorf("Job '%s' (Execution ID: %s) の実行中にエラーが発生しました: %v", jobName, outcome.JobExecutionID, err)
		default:
			logger.Errorf("Job '%s' の起動処理中にエラーが発生しました: %v", jobName, err)
		}

		var be *exception.BatchError
		if errors.As(err, &be) && be.StackTrace != "" {
			logger.Debugf("BatchError StackTrace:\n%s", be.StackTrace)
		}
	}

	if outcome != nil {
		for _, r := range outcome.StepResults {
			if r.Status == core.BatchStatusFailed {
				logger.Errorf("  - ステップ '%s' が失敗しました: %s", r.StepName, r.FailureDetail)
			}
		}
		if outcome.Status != core.BatchStatusCompleted {
			hasError = true
			logger.Errorf("Job '%s' は失敗しました。詳細は JobExecution (ID: %s) およびログを確認してください。", jobName, outcome.JobExecutionID)
		} else {
			logger.Infof("Job '%s' (Execution ID: %s) が正常に完了しました。", jobName, outcome.JobExecutionID)
		}
	}

	if hasError {
		return 1
	}
	return 0
}
