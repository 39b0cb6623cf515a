package signals

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

// 信号阈值
const (
	RSIOverboughtLevel = 70.0
	RSIOversoldLevel   = 30.0
	ComboPriceChange   = 3.0 // 放量同时收盘涨幅超过3%
)

// Evaluate 对每一行打信号标签，纯函数
func Evaluate(pair string, frame *types.IndicatorFrame) ([]types.SignalRow, error) {
	if frame == nil || !frame.Computed || frame.Len() == 0 {
		err := types.Errorf(types.DataShape, "signals.evaluate", "indicators missing for %s", pair)
		zap.L().Warn("⚠️ 指标不完整，跳过信号评估", zap.String("pair", pair), zap.Error(err))
		return nil, err
	}

	rows := make([]types.SignalRow, frame.Len())
	for i, cur := range frame.Rows {
		row := types.SignalRow{
			Pair:      pair,
			Timestamp: cur.Timestamp,
			Open:      cur.Open,
			High:      cur.High,
			Low:       cur.Low,
			Close:     cur.Close,
			MACD:      cur.MACD,
		}

		if i > 0 {
			prev := frame.Rows[i-1]
			switch crossDirection(prev, cur) {
			case 1:
				row.MACDLabel = types.LabelBullishCross
			case -1:
				row.BearishCross = true
			}
		}

		if cur.VolumeSpike {
			row.VolumeSpikeLabel = types.LabelVolumeSpike
		}
		row.RSISignal = rsiLabel(cur.RSI)

		if cur.BBUpper != nil && cur.Close > *cur.BBUpper {
			row.BBBreakout = types.LabelBreakout
		}
		if cur.BBLower != nil && cur.Close < *cur.BBLower {
			row.BBBreakdown = types.LabelBreakdown
		}

		if cur.VolumeSpike && i > 0 && frame.Rows[i-1].Close != 0 {
			if types.ChangePercent(cur.Close, frame.Rows[i-1].Close) > ComboPriceChange {
				row.ComboSpike = types.LabelComboSpike
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// crossDirection MACD上穿返回1，下穿返回-1，否则0
func crossDirection(prev, cur types.IndicatorRow) int {
	if prev.MACD == nil || prev.MACDSignal == nil || cur.MACD == nil || cur.MACDSignal == nil {
		return 0
	}
	if *cur.MACD > *cur.MACDSignal && *prev.MACD <= *prev.MACDSignal {
		return 1
	}
	if *cur.MACD < *cur.MACDSignal && *prev.MACD >= *prev.MACDSignal {
		return -1
	}
	return 0
}

func rsiLabel(rsi *float64) string {
	if rsi == nil {
		return ""
	}
	switch {
	case *rsi < RSIOversoldLevel:
		return types.LabelOversold
	case *rsi > RSIOverboughtLevel:
		return types.LabelOverbought
	}
	return ""
}

// Tail 取最后n行
func Tail(rows []types.SignalRow, n int) []types.SignalRow {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}

// AutoScanAlerts 自动扫描规则，只看最新一行
//
// MACD交叉依据上一根的柱状图符号判断，只有一行时上一根柱状图视为0。
func AutoScanAlerts(pair string, frame *types.IndicatorFrame) []types.Signal {
	latest, ok := frame.Last()
	if !ok || !frame.Computed {
		return nil
	}

	var alerts []types.Signal
	add := func(kind types.SignalKind, label string) {
		alerts = append(alerts, types.Signal{Pair: pair, Timestamp: latest.Timestamp, Kind: kind, Label: label})
	}

	if latest.RSI != nil {
		if *latest.RSI > RSIOverboughtLevel {
			add(types.RSIOverbought, fmt.Sprintf("RSI Overbought (%.2f)", *latest.RSI))
		} else if *latest.RSI < RSIOversoldLevel {
			add(types.RSIOversold, fmt.Sprintf("RSI Oversold (%.2f)", *latest.RSI))
		}
	}

	if latest.MACD == nil || latest.MACDSignal == nil {
		return alerts
	}
	prevHist := types.Float(0)
	if n := frame.Len(); n > 1 {
		prevHist = frame.Rows[n-2].MACDHistogram
	}
	if prevHist == nil {
		return alerts
	}
	if *latest.MACD > *latest.MACDSignal && *prevHist <= 0 {
		add(types.MACDBullishCross, "MACD Bullish Crossover")
	} else if *latest.MACD < *latest.MACDSignal && *prevHist >= 0 {
		add(types.MACDBearishCross, "MACD Bearish Crossover")
	}
	return alerts
}

// Labels 提取信号文本
func Labels(signals []types.Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Label
	}
	return out
}

// CompositeSignal 交互扫描使用的组合信号，text为去重键
func CompositeSignal(row types.SignalRow) (parts []string, text string) {
	if row.MACDLabel != "" {
		parts = append(parts, "- MACD: "+row.MACDLabel)
	}
	if row.VolumeSpikeLabel != "" {
		parts = append(parts, "- Volume Spike: "+row.VolumeSpikeLabel)
	}
	return parts, strings.Join(parts, "; ")
}
