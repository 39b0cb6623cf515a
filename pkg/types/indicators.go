package types

import "time"

// IndicatorRow 带技术指标的K线，窗口不足的指标为nil
type IndicatorRow struct {
	Candle
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macd_signal"`
	MACDHistogram *float64 `json:"macd_histogram"`
	RSI           *float64 `json:"rsi"`
	BBUpper       *float64 `json:"bb_upper"`
	BBLower       *float64 `json:"bb_lower"`
	VolumeSMA     *float64 `json:"volume_sma_20"`
	VolumeSpike   bool     `json:"volume_spike"`
}

// IndicatorFrame 指标计算结果
type IndicatorFrame struct {
	Rows     []IndicatorRow `json:"rows"`
	Computed bool           `json:"computed"` // false 表示指标未计算（数据异常）
}

// Len 行数
func (f *IndicatorFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Last 最新一行
func (f *IndicatorFrame) Last() (IndicatorRow, bool) {
	if f.Len() == 0 {
		return IndicatorRow{}, false
	}
	return f.Rows[len(f.Rows)-1], true
}

// LatestTime 最新一行的时间
func (f *IndicatorFrame) LatestTime() time.Time {
	row, ok := f.Last()
	if !ok {
		return time.Time{}
	}
	return row.Timestamp
}

// Float 返回指向v的指针
func Float(v float64) *float64 {
	return &v
}
