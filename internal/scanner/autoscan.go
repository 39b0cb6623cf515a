package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"indodax-market-sentry/internal/auditlog"
	"indodax-market-sentry/internal/fetcher"
	"indodax-market-sentry/internal/indicator"
	"indodax-market-sentry/internal/metrics"
	"indodax-market-sentry/internal/notifier"
	"indodax-market-sentry/internal/signals"
	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/pkg/tracing"
	"indodax-market-sentry/pkg/types"
)

// AutoScanner 全交易对自动扫描任务
type AutoScanner struct {
	gateway   fetcher.Gateway
	notifier  notifier.Interface
	state     *storage.SessionState
	csv       *auditlog.CSVLog
	publisher Publisher
	store     AlertStore

	pairs    []string
	interval string
	limit    int
	backoff  time.Duration
	now      func() time.Time
}

// NewAutoScanner 创建自动扫描器，pairs为启动时获取的交易对列表
func NewAutoScanner(gw fetcher.Gateway, n notifier.Interface, state *storage.SessionState, csv *auditlog.CSVLog, pairs []string, cfg types.ScanConfig) *AutoScanner {
	interval := cfg.CandleInterval
	if interval == "" {
		interval = "1h"
	}
	limit := cfg.CandleLimit
	if limit <= 0 {
		limit = 100
	}
	return &AutoScanner{
		gateway:  gw,
		notifier: n,
		state:    state,
		csv:      csv,
		pairs:    append([]string(nil), pairs...),
		interval: interval,
		limit:    limit,
		backoff:  cfg.PairBackoff,
		now:      time.Now,
	}
}

// WithPublisher 设置实时事件发布者
func (a *AutoScanner) WithPublisher(p Publisher) *AutoScanner {
	a.publisher = p
	return a
}

// WithStore 设置数据库镜像
func (a *AutoScanner) WithStore(s AlertStore) *AutoScanner {
	a.store = s
	return a
}

// Run 扫描一轮；单个交易对的失败不会中断本轮
func (a *AutoScanner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx, span := tracing.Start(ctx, tracerName, "autoscan.run")
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("pairs", len(a.pairs)))
	defer span.End()

	started := time.Now()
	metrics.ScanRunsTotal.Inc()
	defer func() { metrics.ScanDuration.Observe(time.Since(started).Seconds()) }()

	log := zap.L().With(zap.String("run_id", runID))
	log.Info("🔍 开始自动扫描所有交易对", zap.Int("pairs", len(a.pairs)))

	var entries []types.AlertLogEntry
	failures := 0
	for _, pair := range a.pairs {
		if err := ctx.Err(); err != nil {
			log.Info("📴 自动扫描被取消", zap.Int("alerted_pairs", len(entries)))
			a.persist(ctx, log, entries)
			return err
		}

		alerts, err := a.scanPair(ctx, pair)
		if err != nil {
			failures++
			kind := types.KindOf(err).String()
			metrics.ScanPairFailuresTotal.WithLabelValues(kind).Inc()
			log.Warn("⚠️ 交易对扫描失败", zap.String("pair", pair), zap.String("kind", kind), zap.Error(err))
			if !a.sleep(ctx) {
				log.Info("📴 自动扫描被取消", zap.Int("alerted_pairs", len(entries)))
				a.persist(ctx, log, entries)
				return ctx.Err()
			}
			continue
		}
		if len(alerts) == 0 {
			continue
		}

		labels := signals.Labels(alerts)
		for _, s := range alerts {
			metrics.ScanAlertsTotal.WithLabelValues(string(s.Kind)).Inc()
		}

		message := AutoScanMessage(pair, a.interval, labels)
		a.notifier.SendText(ctx, message)

		entry := types.AlertLogEntry{Timestamp: a.now(), Pair: pair, Signals: labels, RunID: runID}
		entries = append(entries, entry)
		a.publish(types.AlertEvent{
			ID:      runID,
			Type:    "auto_scan",
			Pair:    pair,
			Signals: labels,
			Message: message,
			Time:    entry.Timestamp,
		})
		log.Info("🚨 自动扫描发现信号", zap.String("pair", displayPair(pair)), zap.Strings("signals", labels))
	}

	a.persist(ctx, log, entries)
	span.SetAttributes(attribute.Int("alerts", len(entries)), attribute.Int("failures", failures))
	log.Info("✅ 自动扫描完成",
		zap.Int("alerted_pairs", len(entries)),
		zap.Int("failures", failures),
		zap.Duration("took", time.Since(started)))
	return nil
}

// scanPair 单个交易对：取K线、算指标、判断信号，panic转为错误
func (a *AutoScanner) scanPair(ctx context.Context, pair string) (alerts []types.Signal, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "autoscan.pair")
	span.SetAttributes(attribute.String("pair", pair))
	defer func() {
		if r := recover(); r != nil {
			err = types.Errorf(types.DataShape, "autoscan.pair", "panic while scanning %s: %v", pair, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	candles, err := a.gateway.GetCandles(ctx, pair, a.interval, a.limit)
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
	return signals.AutoScanAlerts(pair, frame), nil
}

// persist 写入内存结果、CSV审计日志和可选的数据库镜像；本轮被取消时已发出的告警同样落盘
func (a *AutoScanner) persist(ctx context.Context, log *zap.Logger, entries []types.AlertLogEntry) {
	if len(entries) == 0 {
		log.Info("📊 本轮自动扫描没有发现新的显著信号")
		return
	}

	a.state.AppendScanResults(entries...)

	if a.csv != nil {
		if err := a.csv.Append(entries); err != nil {
			log.Error("❌ 写入审计日志失败", zap.String("path", a.csv.Path()), zap.Error(err))
		} else {
			log.Info("💾 自动扫描结果已写入审计日志", zap.String("path", a.csv.Path()))
		}
	}

	if a.store != nil {
		if err := a.store.SaveAlerts(context.WithoutCancel(ctx), entries); err != nil {
			log.Warn("⚠️ 保存扫描结果到数据库失败", zap.Error(err))
		}
	}
}

func (a *AutoScanner) publish(event types.AlertEvent) {
	if a.publisher != nil {
		a.publisher.Publish(event)
	}
}

// sleep 失败后的退避，被取消时返回false
func (a *AutoScanner) sleep(ctx context.Context) bool {
	if a.backoff <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(a.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// AutoScanMessage 自动扫描的通知文本
func AutoScanMessage(pair, interval string, labels []string) string {
	lines := make([]string, 0, len(labels)+1)
	lines = append(lines, fmt.Sprintf("🚨 Auto-Scan signal on %s (%s):", displayPair(pair), strings.ToUpper(interval)))
	for _, l := range labels {
		lines = append(lines, "- "+l)
	}
	return strings.Join(lines, "\n")
}
