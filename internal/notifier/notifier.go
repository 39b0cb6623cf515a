package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"indodax-market-sentry/internal/metrics"
	"indodax-market-sentry/pkg/types"
)

// Interface 通知接口，失败只返回false，不向调用方抛错
type Interface interface {
	SendText(ctx context.Context, message string) bool
	SendPhoto(ctx context.Context, file, caption string) bool
}

// safePadding 安全地计算填充空格数量，避免负数
func safePadding(content string, totalWidth int) int {
	// 使用utf8.RuneCountInString计算实际显示字符数，而不是字节数
	padding := totalWidth - utf8.RuneCountInString(content) - 2
	if padding < 0 {
		padding = 0
	}
	return padding
}

func record(channel string, ok bool) bool {
	metrics.NotificationsTotal.WithLabelValues(channel, metrics.Result(ok)).Inc()
	return ok
}

// ConsoleNotifier 控制台通知器
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout}
}

func (cn *ConsoleNotifier) SendText(_ context.Context, message string) bool {
	cn.printBox(strings.Split(message, "\n"))
	return record("console", true)
}

func (cn *ConsoleNotifier) SendPhoto(_ context.Context, file, caption string) bool {
	if _, err := os.Stat(file); err != nil {
		return record("console", false)
	}
	cn.printBox([]string{"🖼  " + caption, file})
	return record("console", true)
}

func (cn *ConsoleNotifier) printBox(lines []string) {
	const width = 70
	cn.mu.Lock()
	defer cn.mu.Unlock()

	fmt.Fprintln(cn.out, "╔"+strings.Repeat("═", width)+"╗")
	for _, line := range lines {
		fmt.Fprintf(cn.out, "║ %s%s ║\n", line, strings.Repeat(" ", safePadding(line, width)))
	}
	fmt.Fprintln(cn.out, "╚"+strings.Repeat("═", width)+"╝")
}

// Multi 同时发往多个通道，任一通道成功即视为成功
type Multi struct {
	channels []Interface
}

func NewMulti(channels ...Interface) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) SendText(ctx context.Context, message string) bool {
	ok := false
	for _, ch := range m.channels {
		if ch.SendText(ctx, message) {
			ok = true
		}
	}
	if !ok {
		zap.L().Warn("⚠️ 所有通知通道发送失败")
	}
	return ok
}

func (m *Multi) SendPhoto(ctx context.Context, file, caption string) bool {
	ok := false
	for _, ch := range m.channels {
		if ch.SendPhoto(ctx, file, caption) {
			ok = true
		}
	}
	return ok
}

// Len 通道数量
func (m *Multi) Len() int {
	return len(m.channels)
}

// FromConfig 根据配置组装通知通道：Telegram为主，钉钉、PushPlus、控制台按需追加
func FromConfig(cfg *types.Config) *Multi {
	channels := []Interface{NewTelegramNotifier(cfg.Telegram.BaseURL, cfg.Telegram.Token, cfg.Telegram.ChatID)}
	if cfg.DingTalk.WebhookURL != "" {
		channels = append(channels, NewDingTalkNotifier(cfg.DingTalk.WebhookURL, cfg.DingTalk.Secret))
		zap.L().Info("✅ 已配置钉钉通知服务")
	}
	if cfg.PushPlus.UserToken != "" {
		channels = append(channels, NewPushPlusNotifier(cfg.PushPlus.UserToken, cfg.PushPlus.To))
		zap.L().Info("✅ 已配置PushPlus通知服务")
	}
	if cfg.Notify.Console {
		channels = append(channels, NewConsoleNotifier())
		zap.L().Info("🔧 已开启控制台输出")
	}
	return NewMulti(channels...)
}
