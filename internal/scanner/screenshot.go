package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"indodax-market-sentry/internal/auditlog"
	"indodax-market-sentry/internal/notifier"
	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/pkg/types"
)

// ErrCaptureDisabled 未配置截图命令
var ErrCaptureDisabled = errors.New("screenshot capture disabled")

// Capturer 生成一张截图并返回文件路径
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// CommandCapturer 调用外部命令截图，命令中的 {file} 会被替换为输出路径
type CommandCapturer struct {
	Command string
	Dir     string
	Timeout time.Duration
}

// NewCommandCapturer 根据配置创建截图器
func NewCommandCapturer(cfg types.ScreenshotConfig) *CommandCapturer {
	dir := cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return &CommandCapturer{Command: cfg.Command, Dir: dir, Timeout: 30 * time.Second}
}

func (c *CommandCapturer) Capture(ctx context.Context) (string, error) {
	args := strings.Fields(c.Command)
	if len(args) == 0 {
		return "", ErrCaptureDisabled
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(c.Dir, fmt.Sprintf("ui_screenshot_%d.png", time.Now().UnixNano()))
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{file}", file)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		_ = os.Remove(file)
		return "", fmt.Errorf("screenshot command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(file); err != nil {
		return "", fmt.Errorf("screenshot command produced no file: %w", err)
	}
	return file, nil
}

// ScreenshotJob 定时截图任务
type ScreenshotJob struct {
	capturer Capturer
	notifier notifier.Interface
	state    *storage.SessionState
	interval time.Duration
	now      func() time.Time
}

// NewScreenshotJob 创建截图任务
func NewScreenshotJob(c Capturer, n notifier.Interface, state *storage.SessionState, interval time.Duration) *ScreenshotJob {
	return &ScreenshotJob{capturer: c, notifier: n, state: state, interval: interval, now: time.Now}
}

// Run 距离上次截图已满一个周期时截图并发送；无论发送是否成功都会更新截图时间
func (j *ScreenshotJob) Run(ctx context.Context) error {
	if j.interval <= 0 {
		return nil
	}
	now := j.now()
	if last, ok := j.state.LastScreenshot(); ok && now.Sub(last) < j.interval {
		return nil
	}

	j.Send(ctx, fmt.Sprintf("Periodic UI Screenshot (%s)", now.Format(auditlog.TimeLayout)))
	j.state.MarkScreenshot(now)
	return nil
}

// Send 截图、发送并删除临时文件，返回是否送达
func (j *ScreenshotJob) Send(ctx context.Context, caption string) bool {
	file, err := j.capturer.Capture(ctx)
	if errors.Is(err, ErrCaptureDisabled) {
		zap.L().Info("📸 截图已禁用（未配置截图命令）")
		return false
	}
	if err != nil {
		zap.L().Warn("❌ 截图失败", zap.Error(err))
		return false
	}
	defer func() {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("⚠️ 删除截图文件失败", zap.String("file", file), zap.Error(err))
		}
	}()

	ok := j.notifier.SendPhoto(ctx, file, caption)
	if ok {
		zap.L().Info("✅ 截图已发送", zap.String("caption", caption))
	} else {
		zap.L().Warn("❌ 截图发送失败", zap.String("caption", caption))
	}
	return ok
}
