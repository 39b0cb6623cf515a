package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"indodax-market-sentry/internal/auditlog"
	"indodax-market-sentry/internal/fetcher"
	"indodax-market-sentry/internal/format"
	"indodax-market-sentry/internal/indicator"
	"indodax-market-sentry/internal/metrics"
	"indodax-market-sentry/internal/notifier"
	"indodax-market-sentry/internal/signals"
	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/pkg/tracing"
	"indodax-market-sentry/pkg/types"
)

// Outcome 交互扫描结果
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeNoSignal    Outcome = "no_signal"
	OutcomeSendFailed  Outcome = "send_failed"
	OutcomeNoData      Outcome = "no_data"
)

// 面板展示最近几行信号
const inspectRows = 5

// ScanResult 交互扫描返回值
type ScanResult struct {
	Pair       string            `json:"pair"`
	Interval   string            `json:"interval"`
	Outcome    Outcome           `json:"outcome"`
	SignalText string            `json:"signal_text,omitempty"`
	Message    string            `json:"message,omitempty"`
	Rows       []types.SignalRow `json:"rows,omitempty"`
	Warning    string            `json:"warning,omitempty"`
}

// Interactive 面板上单个交易对的手动扫描
type Interactive struct {
	gateway   fetcher.Gateway
	notifier  notifier.Interface
	state     *storage.SessionState
	signalLog *auditlog.SignalLog
	publisher Publisher
	store     SignalStore
	limit     int
}

// NewInteractive 创建交互扫描器
func NewInteractive(gw fetcher.Gateway, n notifier.Interface, state *storage.SessionState, signalLog *auditlog.SignalLog, limit int) *Interactive {
	if limit <= 0 {
		limit = 100
	}
	return &Interactive{gateway: gw, notifier: n, state: state, signalLog: signalLog, limit: limit}
}

func (s *Interactive) WithPublisher(p Publisher) *Interactive {
	s.publisher = p
	return s
}

func (s *Interactive) WithStore(store SignalStore) *Interactive {
	s.store = store
	return s
}

// Inspect 最近5行信号
func (s *Interactive) Inspect(ctx context.Context, pair, interval string) ([]types.SignalRow, error) {
	rows, err := s.evaluate(ctx, pair, interval)
	if err != nil {
		return nil, err
	}
	return signals.Tail(rows, inspectRows), nil
}

// Scan 评估最新一行的组合信号，未发送过则推送
func (s *Interactive) Scan(ctx context.Context, pair, interval string) (ScanResult, error) {
	ctx, span := tracing.Start(ctx, tracerName, "interactive.scan")
	span.SetAttributes(attribute.String("pair", pair), attribute.String("interval", interval))
	defer span.End()

	res := ScanResult{Pair: pair, Interval: interval}
	done := func(o Outcome) (ScanResult, error) {
		res.Outcome = o
		span.SetAttributes(attribute.String("outcome", string(o)))
		metrics.InteractiveScansTotal.WithLabelValues(string(o)).Inc()
		return res, nil
	}

	rows, err := s.evaluate(ctx, pair, interval)
	if err != nil {
		if types.IsFatal(err) {
			return res, err
		}
		res.Warning = err.Error()
		return done(OutcomeNoData)
	}
	if len(rows) == 0 {
		return done(OutcomeNoData)
	}
	res.Rows = signals.Tail(rows, inspectRows)

	parts, text := signals.CompositeSignal(rows[len(rows)-1])
	if text == "" {
		return done(OutcomeNoSignal)
	}
	res.SignalText = text

	rec, fresh := s.state.Reserve(pair, text)
	if !fresh {
		zap.L().Info("ℹ️ 信号已发送过", zap.String("pair", pair), zap.String("signal", text))
		return done(OutcomeAlreadySent)
	}

	lines := append([]string{fmt.Sprintf("📢 Signal detected on %s (%s)", displayPair(pair), fetcher.IntervalLabel(interval))}, parts...)
	summary, err := s.gateway.GetSummary(ctx, pair)
	if err != nil {
		res.Warning = err.Error()
	} else if summary != nil {
		lines = append(lines, "- Price: "+format.Price(summary.Last, pair))
	}
	res.Message = strings.Join(lines, "\n")

	if !s.notifier.SendText(ctx, res.Message) {
		s.state.Release(pair, text)
		zap.L().Error("❌ 信号发送失败", zap.String("pair", pair))
		return done(OutcomeSendFailed)
	}

	s.afterSend(ctx, rec, res)
	return done(OutcomeSent)
}

// Reset 清空已发送信号记录
func (s *Interactive) Reset() int {
	n := s.state.ResetSentSignals()
	zap.L().Info("🧹 已清空已发送信号", zap.Int("count", n))
	return n
}

func (s *Interactive) afterSend(ctx context.Context, rec types.SentSignalRecord, res ScanResult) {
	zap.L().Info("🚀 信号已发送", zap.String("pair", res.Pair), zap.String("signal", res.SignalText))

	if s.signalLog != nil {
		if err := s.signalLog.Append(rec.Time, res.Pair, res.Message); err != nil {
			zap.L().Error("❌ 写入信号日志失败", zap.String("path", s.signalLog.Path()), zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.SaveSentSignal(ctx, rec, res.Message); err != nil {
			zap.L().Warn("⚠️ 保存已发送信号到数据库失败", zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(types.AlertEvent{
			ID:      uuid.NewString(),
			Type:    "interactive",
			Pair:    res.Pair,
			Signals: []string{res.SignalText},
			Message: res.Message,
			Time:    rec.Time,
		})
	}
}

func (s *Interactive) evaluate(ctx context.Context, pair, interval string) ([]types.SignalRow, error) {
	candles, err := s.gateway.GetCandles(ctx, pair, interval, s.limit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	frame, err := indicator.Apply(candles)
	if err != nil {
		return nil, err
	}
	return signals.Evaluate(pair, frame)
}
