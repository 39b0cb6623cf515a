package scanner

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"indodax-market-sentry/internal/notifier"
	"indodax-market-sentry/pkg/types"
)

const (
	tracerName     = "indodax-market-sentry/scanner"
	startupMessage = "✅ Read ONE Trade is up and running"
	startupCaption = "Initial UI View"
)

// Publisher 实时事件发布（面板WebSocket）
type Publisher interface {
	Publish(event types.AlertEvent)
}

// AlertStore 自动扫描结果的持久化镜像
type AlertStore interface {
	SaveAlerts(ctx context.Context, entries []types.AlertLogEntry) error
}

// SignalStore 已发送信号的持久化镜像
type SignalStore interface {
	SaveSentSignal(ctx context.Context, rec types.SentSignalRecord, message string) error
}

// Announce 启动通知：发送一次上线消息和初始截图
func Announce(ctx context.Context, n notifier.Interface, shot *ScreenshotJob) {
	if n.SendText(ctx, startupMessage) {
		zap.L().Info("✅ 启动通知已发送")
	} else {
		zap.L().Warn("⚠️ 启动通知发送失败")
	}
	if shot != nil {
		shot.Send(ctx, startupCaption)
	}
}

func displayPair(pair string) string {
	return strings.ToUpper(pair)
}
