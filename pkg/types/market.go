package types

import "time"

// Candle K线数据
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Trade 逐笔成交
type Trade struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Side      string    `json:"side"` // buy | sell
}

// Summary 24小时行情摘要
type Summary struct {
	Pair          string  `json:"pair"`
	Last          float64 `json:"last"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	VolIDR        float64 `json:"vol_idr"`
	VolBase       float64 `json:"vol_base"`
	ChangePercent float64 `json:"change_percent"`
}

// Ticker 全市场行情中的一行
type Ticker struct {
	Pair   string  `json:"pair"`
	Last   float64 `json:"last"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Buy    float64 `json:"buy"`
	Sell   float64 `json:"sell"`
	VolIDR float64 `json:"vol_idr"`
	Change float64 `json:"change"` // 相对24h最低价的涨幅 %
}

// TradeVolume 成交量按方向汇总
type TradeVolume struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// ChangePercent 计算涨跌幅，基准为0时返回0
func ChangePercent(current, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (current - base) / base * 100
}
