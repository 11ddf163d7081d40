package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/go_batch_tutorial/example/tutorial/app"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte // application.yaml の内容をバイトスライスとして埋め込む

//go:embed resources/job.yaml
var embeddedJSL []byte // JSL YAML ファイルを埋め込む

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング (Ctrl+C などで安全に終了するため)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("シグナル '%v' を受信しました。ジョブの停止を試みます...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	// 引数は key=value 形式の JobParameters (例: requestDate=20200327)
	exitCode := app.RunApplication(ctx, envFilePath, embeddedConfig, embeddedJSL, os.Args[1:])
	cancel()
	os.Exit(exitCode)
}
