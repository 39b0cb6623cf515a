package main

import (
	"log"
	"os"

	"go.uber.org/zap"
	"indodax-market-sentry/pkg/config"
	"indodax-market-sentry/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志
	if _, err := logger.Init(cfg.Log); err != nil {
		log.Fatal("初始化日志失败:", err)
	}
	defer func() { _ = zap.L().Sync() }()

	app := NewApp(cfg)
	if err := app.Start(); err != nil {
		zap.L().Error("❌ 启动失败", zap.Error(err))
		app.Stop()
		_ = zap.L().Sync()
		os.Exit(1)
	}

	app.WaitForShutdown()
	app.Stop()
}
