package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"indodax-market-sentry/internal/api"
	"indodax-market-sentry/internal/auditlog"
	"indodax-market-sentry/internal/fetcher"
	"indodax-market-sentry/internal/notifier"
	"indodax-market-sentry/internal/scanner"
	"indodax-market-sentry/internal/scheduler"
	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/internal/storage/database"
	"indodax-market-sentry/pkg/tracing"
	"indodax-market-sentry/pkg/types"
)

const shutdownTimeout = 30 * time.Second

// App 应用程序管理器
type App struct {
	config *types.Config
	ctx    context.Context
	cancel context.CancelFunc

	cache     *storage.CandleCache
	db        *database.Manager
	scheduler *scheduler.Scheduler
	server    *api.Server
}

// NewApp 创建应用程序实例
func NewApp(config *types.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动应用程序；获取交易对列表失败是唯一的致命错误
func (app *App) Start() error {
	zap.L().Info("🚀 Indodax Market Sentry 启动中...",
		zap.String("exchange", app.config.Exchange.Name))

	if err := tracing.Init(app.config.Tracing); err != nil {
		zap.L().Warn("⚠️ 链路追踪初始化失败", zap.Error(err))
	}

	gw, err := fetcher.New(app.config.Exchange, app.config.Network)
	if err != nil {
		return err
	}
	app.cache = storage.NewCandleCache(app.config.Redis, app.config.Cache.TTL)
	gw = fetcher.NewCachedGateway(gw, app.cache)

	pairs, err := gw.ListPairs(app.ctx)
	if err != nil {
		return types.NewError(types.Fatal, "app.start", fmt.Errorf("获取交易对列表失败: %w", err))
	}
	if len(pairs) == 0 {
		return types.Errorf(types.Fatal, "app.start", "交易所没有返回任何交易对")
	}
	zap.L().Info("✅ 已加载交易对", zap.Int("count", len(pairs)))

	state := storage.NewSessionState()
	notify := notifier.FromConfig(app.config)
	hub := api.NewHub(app.config.API.PingInterval)

	autoScanner := scanner.NewAutoScanner(gw, notify, state,
		auditlog.NewCSVLog(app.config.Audit.CSVPath), pairs, app.config.Scan).WithPublisher(hub)
	interactive := scanner.NewInteractive(gw, notify, state,
		auditlog.NewSignalLog(app.config.Audit.SignalLogPath), app.config.Scan.CandleLimit).WithPublisher(hub)

	// MySQL只作为可选的审计镜像
	if app.config.Database.MySQL.Host != "" {
		db, err := database.NewManager(app.config.Database.MySQL)
		if err != nil {
			zap.L().Warn("⚠️ MySQL不可用，跳过数据库镜像", zap.Error(err))
		} else {
			app.db = db
			autoScanner.WithStore(db)
			interactive.WithStore(db)
		}
	}

	shot := scanner.NewScreenshotJob(scanner.NewCommandCapturer(app.config.Screenshot), notify, state, app.config.Screenshot.Interval)

	app.scheduler = scheduler.NewScheduler(app.config.Scheduler.Tick)
	if err := app.scheduler.Register(&scheduler.Job{
		Name:            "auto-scan",
		Interval:        app.config.Scan.Interval,
		Handler:         autoScanner.Run,
		AlignToInterval: app.config.Scan.AlignToInterval,
	}); err != nil {
		return err
	}
	if app.config.Screenshot.Interval > 0 {
		if err := app.scheduler.Register(&scheduler.Job{
			Name:     "screenshot",
			Interval: app.config.Screenshot.Interval,
			Handler:  shot.Run,
		}); err != nil {
			return err
		}
	} else {
		zap.L().Info("📸 定时截图已关闭")
	}

	if app.config.Notify.Startup {
		scanner.Announce(app.ctx, notify, shot)
	}

	app.scheduler.Start(app.ctx)

	app.server = api.NewServer(gw, interactive, state, app.scheduler, hub, pairs).WithCache(app.cache)
	app.server.Start(app.config.API.Listen)

	zap.L().Info("✅ Indodax Market Sentry 已启动",
		zap.Int("channels", notify.Len()),
		zap.Duration("scan_interval", app.config.Scan.Interval))
	return nil
}

// Stop 停止应用程序
func (app *App) Stop() {
	zap.L().Info("🛑 收到停止信号，正在优雅关闭...")
	app.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			zap.L().Warn("⚠️ 面板接口关闭失败", zap.Error(err))
		}
	}
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			zap.L().Warn("⚠️ 关闭数据库失败", zap.Error(err))
		}
	}
	if app.cache != nil {
		_ = app.cache.Close()
	}
	if err := tracing.Shutdown(ctx); err != nil {
		zap.L().Warn("⚠️ 关闭链路追踪失败", zap.Error(err))
	}

	zap.L().Info("✅ Indodax Market Sentry 已安全关闭")
}

// WaitForShutdown 等待关闭信号
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
