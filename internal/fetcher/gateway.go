package fetcher

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

// Gateway 行情数据网关，出错时返回空结果和Transient错误，不会panic
type Gateway interface {
	ListPairs(ctx context.Context) ([]string, error)
	GetSummary(ctx context.Context, pair string) (*types.Summary, error)
	GetTrades(ctx context.Context, pair string) ([]types.Trade, error)
	GetCandles(ctx context.Context, pair, interval string, limit int) ([]types.Candle, error)
	GetTickers(ctx context.Context) (map[string]types.Ticker, error)
}

// New 根据配置创建网关
func New(exchange types.ExchangeConfig, network types.NetworkConfig) (Gateway, error) {
	client := NewHTTPClient(network)
	switch strings.ToLower(exchange.Name) {
	case "indodax", "":
		return NewIndodaxGateway(exchange.BaseURL, client), nil
	case "okx":
		configureGoex(network)
		return NewOKXGateway(exchange.BaseURL, client), nil
	default:
		return nil, types.Errorf(types.Fatal, "fetcher.new", "unsupported exchange %q", exchange.Name)
	}
}

// NewHTTPClient 创建带超时和可选代理的HTTP客户端
func NewHTTPClient(networkConfig types.NetworkConfig) *http.Client {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	// 如果配置了代理，则使用代理
	if networkConfig.Proxy != "" {
		proxyURL, err := url.Parse(networkConfig.Proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", networkConfig.Proxy))
		} else {
			zap.L().Warn("⚠️ 代理地址格式错误", zap.Error(err))
		}
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

// ParseInterval 解析K线周期，不支持时ok为false
func ParseInterval(interval string) (d time.Duration, ok bool) {
	switch interval {
	case "1m", "1min":
		return time.Minute, true
	case "3m", "3min":
		return 3 * time.Minute, true
	case "5m", "5min":
		return 5 * time.Minute, true
	case "15m", "15min":
		return 15 * time.Minute, true
	case "30m", "30min":
		return 30 * time.Minute, true
	case "1H", "1h":
		return time.Hour, true
	case "2H", "2h":
		return 2 * time.Hour, true
	case "4H", "4h":
		return 4 * time.Hour, true
	case "6H", "6h":
		return 6 * time.Hour, true
	case "12H", "12h":
		return 12 * time.Hour, true
	case "1D", "1d":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// IntervalLabel 周期的展示名称
func IntervalLabel(interval string) string {
	d, ok := ParseInterval(interval)
	if !ok {
		return interval
	}
	switch {
	case d >= 24*time.Hour:
		return "1 Day"
	case d == time.Hour:
		return "1 Hour"
	case d > time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + " Hours"
	default:
		return strconv.Itoa(int(d/time.Minute)) + " Min"
	}
}

// Resample 将成交按周期聚合为K线：价格取OHLC，成交量为数量之和，空桶丢弃。
// 桶按Unix纪元对齐，结果时间严格递增，只保留最后limit根（limit<=0时全部保留）。
func Resample(trades []types.Trade, interval time.Duration, limit int) []types.Candle {
	if len(trades) == 0 || interval <= 0 {
		return nil
	}

	sorted := append([]types.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var candles []types.Candle
	for _, tr := range sorted {
		if tr.Price <= 0 {
			continue
		}
		bucket := tr.Timestamp.UTC().Truncate(interval)
		n := len(candles)
		if n > 0 && candles[n-1].Timestamp.Equal(bucket) {
			c := &candles[n-1]
			if tr.Price > c.High {
				c.High = tr.Price
			}
			if tr.Price < c.Low {
				c.Low = tr.Price
			}
			c.Close = tr.Price
			c.Volume += tr.Amount
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: bucket,
			Open:      tr.Price,
			High:      tr.Price,
			Low:       tr.Price,
			Close:     tr.Price,
			Volume:    tr.Amount,
		})
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles
}

// SumTradeVolume 按买卖方向汇总成交量
func SumTradeVolume(trades []types.Trade) types.TradeVolume {
	var v types.TradeVolume
	for _, tr := range trades {
		switch tr.Side {
		case "buy":
			v.Buy += tr.Amount
		case "sell":
			v.Sell += tr.Amount
		}
	}
	return v
}
