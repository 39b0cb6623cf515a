package analyzer

import (
	"fmt"
	"math"
	"sort"

	"indodax-market-sentry/internal/format"
	"indodax-market-sentry/pkg/types"
)

// 市场信号
const (
	StrongBuy  = "STRONG BUY"
	Buy        = "BUY"
	Hold       = "HOLD"
	StrongSell = "STRONG SELL"
	Sell       = "SELL"
)

// 买卖力量比较阈值
const dominanceRatio = 1.2

// MarketRow 全市场表格中的一行
type MarketRow struct {
	types.Ticker
	Price        string `json:"price"`
	Volume       string `json:"volume"`
	BuySellRatio string `json:"buy_sell_ratio"`
	Signal       string `json:"signal"`
	Suggestion   string `json:"suggestion"`
	SpikePercent string `json:"spike_percent"`
}

// Overview 市场概览
type Overview struct {
	Gainers []MarketRow `json:"gainers"`
	Losers  []MarketRow `json:"losers"`
	Volume  []MarketRow `json:"volume"`
}

// MarketSignal 根据买卖量给出市场信号
func MarketSignal(buy, sell float64) string {
	switch {
	case buy > sell*dominanceRatio:
		return StrongBuy
	case buy > sell:
		return Buy
	case buy == sell:
		return Hold
	case sell > buy*dominanceRatio:
		return StrongSell
	default:
		return Sell
	}
}

// PositionSuggestion 仓位建议
func PositionSuggestion(signal string) string {
	switch signal {
	case StrongBuy, Buy:
		return "Consider LONG"
	case StrongSell, Sell:
		return "Consider SHORT"
	default:
		return "-"
	}
}

// BuySellRatio 买卖比描述
func BuySellRatio(buy, sell float64) string {
	if buy == 0 && sell == 0 {
		return "Balanced (1.00)"
	}
	ratio := buy / (sell + 1e-9)
	switch {
	case ratio > dominanceRatio:
		return fmt.Sprintf("Demand > Supply (%.2f)", ratio)
	case ratio < 0.8:
		return fmt.Sprintf("Supply > Demand (%.2f)", ratio)
	default:
		return fmt.Sprintf("Balanced (%.2f)", ratio)
	}
}

// Enrich 为行情补充展示字段
func Enrich(t types.Ticker) MarketRow {
	signal := MarketSignal(t.Buy, t.Sell)
	spike := 0.0
	if t.Low > 0 {
		spike = (t.High - t.Low) / t.Low * 100
	}
	return MarketRow{
		Ticker:       t,
		Price:        format.Price(t.Last, t.Pair),
		Volume:       format.Volume(t.VolIDR),
		BuySellRatio: BuySellRatio(t.Buy, t.Sell),
		Signal:       signal,
		Suggestion:   PositionSuggestion(signal),
		SpikePercent: fmt.Sprintf("%.2f%%", spike),
	}
}

// TopMovers 涨幅榜、跌幅榜和成交额榜，各取前n个，相同值按交易对名称排序
func TopMovers(tickers map[string]types.Ticker, n int) Overview {
	rows := make([]MarketRow, 0, len(tickers))
	for pair, t := range tickers {
		if math.IsNaN(t.Last) || math.IsNaN(t.Change) || math.IsNaN(t.VolIDR) {
			continue
		}
		t.Pair = pair
		rows = append(rows, Enrich(t))
	}

	top := func(less func(a, b MarketRow) bool) []MarketRow {
		sorted := append([]MarketRow(nil), rows...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if less(sorted[i], sorted[j]) {
				return true
			}
			if less(sorted[j], sorted[i]) {
				return false
			}
			return sorted[i].Pair < sorted[j].Pair
		})
		if len(sorted) > n {
			sorted = sorted[:n]
		}
		return sorted
	}

	return Overview{
		Gainers: top(func(a, b MarketRow) bool { return a.Change > b.Change }),
		Losers:  top(func(a, b MarketRow) bool { return a.Change < b.Change }),
		Volume:  top(func(a, b MarketRow) bool { return a.VolIDR > b.VolIDR }),
	}
}
