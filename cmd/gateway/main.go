// API Gatewayサービスのエントリポイント。
// GitHubプロフィールの分析と求人検索のAPIをフロントエンドに提供する。
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nao1215/careerlens/internal/config"
	"github.com/nao1215/careerlens/internal/gateway"
	"github.com/nao1215/careerlens/pkg/logging"
	"github.com/nao1215/careerlens/pkg/paramstore"
)

func main() {
	// .envは任意。存在しない場合は環境変数のみを使う
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Fatalf(".envの読み込みに失敗: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.NeedsParameterStore() {
		store, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			logger.Fatalf("Parameter Storeクライアントの初期化に失敗: %v", err)
		}
		if err := config.ResolveGitHubToken(ctx, cfg, store); err != nil {
			logger.Fatalf("GitHubトークンの取得に失敗: %v", err)
		}
	}
	config.LogCredentials(logger, cfg)

	server, err := gateway.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}

	logger.Infof("Gatewayサービスを起動します: :%s", cfg.Port)
	exitCode := 0
	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("Gatewayサービスが異常終了しました")
		exitCode = 1
	}
	if err := server.Close(); err != nil {
		logger.WithError(err).Warn("リソースの解放に失敗しました")
	}
	logger.Info("Gatewayサービスを停止しました")
	stop()
	os.Exit(exitCode)
}
