package types

import "time"

// SignalKind 信号类型
type SignalKind string

const (
	MACDBullishCross SignalKind = "MACD_BULLISH_CROSS"
	MACDBearishCross SignalKind = "MACD_BEARISH_CROSS"
	RSIOverbought    SignalKind = "RSI_OVERBOUGHT"
	RSIOversold      SignalKind = "RSI_OVERSOLD"
	VolumeSpike      SignalKind = "VOLUME_SPIKE"
	BBBreakout       SignalKind = "BB_BREAKOUT"
	BBBreakdown      SignalKind = "BB_BREAKDOWN"
	ComboSpike       SignalKind = "COMBO_SPIKE"
)

// 面板中使用的信号标签
const (
	LabelBullishCross = "Bullish Cross"
	LabelVolumeSpike  = "Volume Spike"
	LabelOversold     = "Oversold"
	LabelOverbought   = "Overbought"
	LabelBreakout     = "Breakout"
	LabelBreakdown    = "Breakdown"
	LabelComboSpike   = "Strong Up Spike"
)

// Signal 单个信号
type Signal struct {
	Pair      string     `json:"pair"`
	Timestamp time.Time  `json:"timestamp"`
	Kind      SignalKind `json:"kind"`
	Label     string     `json:"label"`
}

// SignalRow 逐行信号评估结果
type SignalRow struct {
	Pair             string    `json:"pair"`
	Timestamp        time.Time `json:"timestamp"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Close            float64   `json:"close"`
	MACD             *float64  `json:"macd"`
	MACDLabel        string    `json:"macd_signal_label"`
	BearishCross     bool      `json:"bearish_cross"`
	VolumeSpikeLabel string    `json:"volume_spike_label"`
	RSISignal        string    `json:"rsi_signal"`
	BBBreakout       string    `json:"bb_breakout"`
	BBBreakdown      string    `json:"bb_breakdown"`
	ComboSpike       string    `json:"combo_spike"`
}

// Signals 展开为信号列表
func (r SignalRow) Signals() []Signal {
	var out []Signal
	add := func(kind SignalKind, label string) {
		out = append(out, Signal{Pair: r.Pair, Timestamp: r.Timestamp, Kind: kind, Label: label})
	}
	if r.MACDLabel != "" {
		add(MACDBullishCross, r.MACDLabel)
	}
	if r.BearishCross {
		add(MACDBearishCross, "Bearish Cross")
	}
	if r.VolumeSpikeLabel != "" {
		add(VolumeSpike, r.VolumeSpikeLabel)
	}
	switch r.RSISignal {
	case LabelOverbought:
		add(RSIOverbought, r.RSISignal)
	case LabelOversold:
		add(RSIOversold, r.RSISignal)
	}
	if r.BBBreakout != "" {
		add(BBBreakout, r.BBBreakout)
	}
	if r.BBBreakdown != "" {
		add(BBBreakdown, r.BBBreakdown)
	}
	if r.ComboSpike != "" {
		add(ComboSpike, r.ComboSpike)
	}
	return out
}

// SentSignalRecord 已发送信号记录，进程内有效
type SentSignalRecord struct {
	Pair       string    `json:"pair"`
	SignalText string    `json:"signal_text"`
	Time       time.Time `json:"time"`
}

// AlertLogEntry 自动扫描结果，对应审计日志的一行
type AlertLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Pair      string    `json:"pair"`
	Signals   []string  `json:"signals"`
	RunID     string    `json:"run_id,omitempty"`
}

// AlertEvent 推送给面板的实时事件
type AlertEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"` // auto_scan | interactive
	Pair    string    `json:"pair"`
	Signals []string  `json:"signals"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
