package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"indodax-market-sentry/pkg/types"
)

// TimeLayout 日志中的时间格式
const TimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Timestamp", "Pair", "Detected Signals"}

// openAppend 以追加模式打开文件，目录不存在时创建
func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// CSVLog 自动扫描审计日志，只追加
type CSVLog struct {
	mu   sync.Mutex
	path string
}

func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

func (l *CSVLog) Path() string { return l.path }

// Append 每个条目写一行，文件为空时先写表头
func (l *CSVLog) Append(entries []types.AlertLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := openAppend(l.path)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Timestamp.Format(TimeLayout), e.Pair, strings.Join(e.Signals, ", ")}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SignalLog 交互扫描发送记录，每条一行
type SignalLog struct {
	mu   sync.Mutex
	path string
}

func NewSignalLog(path string) *SignalLog {
	return &SignalLog{path: path}
}

func (l *SignalLog) Path() string { return l.path }

// Append 写入 "{时间} - {交易对} - {消息}"，消息中的换行折叠为 " | "
func (l *SignalLog) Append(at time.Time, pair, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := openAppend(l.path)
	if err != nil {
		return fmt.Errorf("open signal log: %w", err)
	}
	defer f.Close()

	line := strings.ReplaceAll(strings.TrimSpace(message), "\n", " | ")
	_, err = fmt.Fprintf(f, "%s - %s - %s\n", at.Format(TimeLayout), pair, line)
	return err
}
