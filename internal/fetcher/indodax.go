package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

const defaultIndodaxURL = "https://indodax.com"

// IndodaxGateway Indodax公开行情接口
type IndodaxGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewIndodaxGateway 创建Indodax网关
func NewIndodaxGateway(baseURL string, client *http.Client) *IndodaxGateway {
	if baseURL == "" {
		baseURL = defaultIndodaxURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IndodaxGateway{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// ListPairs 所有交易对，按名称排序
func (g *IndodaxGateway) ListPairs(ctx context.Context) ([]string, error) {
	body, err := getJSON(ctx, g.httpClient, g.baseURL+"/api/tickers", "indodax.list_pairs")
	if err != nil {
		return nil, err
	}

	tickers := gjson.GetBytes(body, "tickers")
	if !tickers.IsObject() {
		return nil, types.Errorf(types.Transient, "indodax.list_pairs", "missing tickers object")
	}

	var pairs []string
	tickers.ForEach(func(key, _ gjson.Result) bool {
		pairs = append(pairs, key.String())
		return true
	})
	sort.Strings(pairs)
	return pairs, nil
}

// GetTickers 全市场行情，涨幅相对24h最低价
func (g *IndodaxGateway) GetTickers(ctx context.Context) (map[string]types.Ticker, error) {
	body, err := getJSON(ctx, g.httpClient, g.baseURL+"/api/tickers", "indodax.tickers")
	if err != nil {
		return map[string]types.Ticker{}, err
	}

	tickers := gjson.GetBytes(body, "tickers")
	if !tickers.IsObject() {
		return map[string]types.Ticker{}, types.Errorf(types.Transient, "indodax.tickers", "missing tickers object")
	}

	out := make(map[string]types.Ticker)
	tickers.ForEach(func(key, v gjson.Result) bool {
		t := types.Ticker{
			Pair:   key.String(),
			Last:   v.Get("last").Float(),
			High:   v.Get("high").Float(),
			Low:    v.Get("low").Float(),
			Buy:    v.Get("buy").Float(),
			Sell:   v.Get("sell").Float(),
			VolIDR: v.Get("vol_idr").Float(),
		}
		t.Change = types.ChangePercent(t.Last, t.Low)
		out[t.Pair] = t
		return true
	})
	return out, nil
}

// GetSummary 单个交易对的24h摘要，缺少open时涨跌幅为0
func (g *IndodaxGateway) GetSummary(ctx context.Context, pair string) (*types.Summary, error) {
	op := "indodax.summary"
	body, err := getJSON(ctx, g.httpClient, fmt.Sprintf("%s/api/%s/ticker", g.baseURL, pair), op)
	if err != nil {
		return nil, err
	}

	t := gjson.GetBytes(body, "ticker")
	if !t.IsObject() || !t.Get("last").Exists() {
		return nil, types.Errorf(types.Transient, op, "missing ticker for %s", pair)
	}

	s := &types.Summary{
		Pair:   pair,
		Last:   t.Get("last").Float(),
		High:   t.Get("high").Float(),
		Low:    t.Get("low").Float(),
		Open:   t.Get("open").Float(),
		VolIDR: t.Get("vol_idr").Float(),
	}
	// 基础币成交量字段名为 vol_<base>
	base := strings.SplitN(pair, "_", 2)[0]
	s.VolBase = t.Get("vol_" + base).Float()
	if s.VolBase == 0 {
		s.VolBase = t.Get("vol_btc").Float()
	}
	s.ChangePercent = types.ChangePercent(s.Last, s.Open)
	return s, nil
}

// GetTrades 最近成交，按时间升序
func (g *IndodaxGateway) GetTrades(ctx context.Context, pair string) ([]types.Trade, error) {
	op := "indodax.trades"
	body, err := getJSON(ctx, g.httpClient, fmt.Sprintf("%s/api/%s/trades", g.baseURL, pair), op)
	if err != nil {
		return nil, err
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		return nil, types.Errorf(types.Transient, op, "unexpected trades payload for %s", pair)
	}

	var trades []types.Trade
	list.ForEach(func(_, v gjson.Result) bool {
		sec := v.Get("date").Int()
		if sec <= 0 {
			return true
		}
		trades = append(trades, types.Trade{
			ID:        v.Get("tid").String(),
			Timestamp: time.Unix(sec, 0).UTC(),
			Price:     v.Get("price").Float(),
			Amount:    v.Get("amount").Float(),
			Side:      v.Get("type").String(),
		})
		return true
	})
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
	return trades, nil
}

// GetCandles 由最近成交聚合出K线
func (g *IndodaxGateway) GetCandles(ctx context.Context, pair, interval string, limit int) ([]types.Candle, error) {
	d, ok := ParseInterval(interval)
	if !ok {
		return nil, types.Errorf(types.DataShape, "indodax.candles", "unsupported interval %q", interval)
	}

	trades, err := g.GetTrades(ctx, pair)
	if err != nil {
		return nil, err
	}
	candles := Resample(trades, d, limit)
	zap.L().Debug("📊 成交聚合K线完成",
		zap.String("pair", pair),
		zap.String("interval", interval),
		zap.Int("trades", len(trades)),
		zap.Int("candles", len(candles)))
	return candles, nil
}

// getJSON 发送GET请求，网络错误和非200状态均视为Transient
func getJSON(ctx context.Context, client *http.Client, url, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewError(types.Transient, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.Errorf(types.Transient, op, "HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.Errorf(types.Transient, op, "HTTP状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Errorf(types.Transient, op, "读取响应失败: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, types.Errorf(types.Transient, op, "响应不是合法JSON")
	}
	return body, nil
}
