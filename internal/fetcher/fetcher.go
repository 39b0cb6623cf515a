package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	goex "github.com/nntaoli-project/goex/v2"
	"github.com/nntaoli-project/goex/v2/model"
	okxcommon "github.com/nntaoli-project/goex/v2/okx/common"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

const (
	defaultOKXURL = "https://www.okx.com"
	okxMaxCandles = 300
)

// okxMarket goex v2 OKX V5 行情接口中用到的部分
type okxMarket interface {
	GetTicker(pair model.CurrencyPair, opt ...model.OptionParameter) (*model.Ticker, []byte, error)
	GetKline(pair model.CurrencyPair, period model.KlinePeriod, opt ...model.OptionParameter) ([]model.Kline, []byte, error)
}

// OKXGateway OKX V5 公共行情接口，只保留USDT现货交易对。
// 单个交易对的行情和K线走goex，全市场tickers和成交记录goex没有封装，直接请求
type OKXGateway struct {
	baseURL    string
	httpClient *http.Client
	market     okxMarket
}

// NewOKXGateway 创建OKX网关
func NewOKXGateway(baseURL string, client *http.Client) *OKXGateway {
	if baseURL == "" {
		baseURL = defaultOKXURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	zap.L().Info("✅ 初始化goex v2 OKX客户端", zap.String("base_url", baseURL))
	return &OKXGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		market:     okxcommon.New(),
	}
}

// configureGoex goex使用自己的全局HTTP客户端，超时和代理要单独设置
func configureGoex(networkConfig types.NetworkConfig) {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	goex.DefaultHttpCli.SetTimeout(int64(timeout / time.Second))

	if networkConfig.Proxy != "" {
		if err := goex.DefaultHttpCli.SetProxy(networkConfig.Proxy); err != nil {
			zap.L().Warn("⚠️ goex代理设置失败", zap.Error(err))
		}
	}
}

// okxPair 将 BTC-USDT 转换为goex的交易对
func okxPair(instID string) model.CurrencyPair {
	base, quote, _ := strings.Cut(instID, "-")
	return model.CurrencyPair{Symbol: instID, BaseSymbol: base, QuoteSymbol: quote}
}

// okxTicker 定义ticker响应结构
type okxTicker struct {
	InstId    string `json:"instId"`
	Last      string `json:"last"`
	Open24h   string `json:"open24h"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	Ts        string `json:"ts"`
}

type okxTrade struct {
	InstId  string `json:"instId"`
	TradeId string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

// ListPairs USDT现货交易对
func (g *OKXGateway) ListPairs(ctx context.Context) ([]string, error) {
	tickers, err := g.getTickers(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(tickers))
	for _, t := range tickers {
		pairs = append(pairs, t.InstId)
	}
	sort.Strings(pairs)
	return pairs, nil
}

// GetTickers 全市场行情
func (g *OKXGateway) GetTickers(ctx context.Context) (map[string]types.Ticker, error) {
	tickers, err := g.getTickers(ctx)
	if err != nil {
		return map[string]types.Ticker{}, err
	}
	out := make(map[string]types.Ticker, len(tickers))
	for _, t := range tickers {
		row := types.Ticker{
			Pair:   t.InstId,
			Last:   parseFloat(t.Last),
			High:   parseFloat(t.High24h),
			Low:    parseFloat(t.Low24h),
			Buy:    parseFloat(t.BidPx),
			Sell:   parseFloat(t.AskPx),
			VolIDR: parseFloat(t.VolCcy24h),
		}
		row.Change = types.ChangePercent(row.Last, row.Low)
		out[row.Pair] = row
	}
	return out, nil
}

// GetSummary 单个交易对24h摘要；open24h和volCcy24h不在goex的Ticker里，从原始响应中取
func (g *OKXGateway) GetSummary(ctx context.Context, pair string) (*types.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.Transient, "okx.summary", err)
	}
	tk, raw, err := g.market.GetTicker(okxPair(pair))
	if err != nil {
		return nil, types.NewError(types.Transient, "okx.summary", err)
	}
	if tk == nil {
		return nil, types.Errorf(types.Transient, "okx.summary", "empty ticker for %s", pair)
	}
	s := &types.Summary{
		Pair:    pair,
		Last:    tk.Last,
		High:    tk.High,
		Low:     tk.Low,
		Open:    okxRawField(raw, "open24h"),
		VolIDR:  okxRawField(raw, "volCcy24h"),
		VolBase: tk.Vol,
	}
	s.ChangePercent = types.ChangePercent(s.Last, s.Open)
	return s, nil
}

// GetTrades 最近成交，按时间升序
func (g *OKXGateway) GetTrades(ctx context.Context, pair string) ([]types.Trade, error) {
	var data []okxTrade
	q := url.Values{"instId": {pair}, "limit": {"500"}}
	if err := g.call(ctx, "/api/v5/market/trades", q, "okx.trades", &data); err != nil {
		return nil, err
	}
	trades := make([]types.Trade, 0, len(data))
	for _, t := range data {
		ms, err := strconv.ParseInt(t.Ts, 10, 64)
		if err != nil {
			continue
		}
		trades = append(trades, types.Trade{
			ID:        t.TradeId,
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     parseFloat(t.Px),
			Amount:    parseFloat(t.Sz),
			Side:      t.Side,
		})
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
	return trades, nil
}

// GetCandles 获取K线数据，OKX返回从新到旧，这里按时间升序返回
func (g *OKXGateway) GetCandles(ctx context.Context, pair, interval string, limit int) ([]types.Candle, error) {
	bar, ok := okxBar(interval)
	if !ok {
		return nil, types.Errorf(types.DataShape, "okx.candles", "unsupported interval %q", interval)
	}
	if limit <= 0 || limit > okxMaxCandles {
		limit = okxMaxCandles
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.Transient, "okx.candles", err)
	}

	klines, _, err := g.market.GetKline(okxPair(pair), model.KlinePeriod(bar),
		model.OptionParameter{Key: "bar", Value: bar},
		model.OptionParameter{Key: "limit", Value: strconv.Itoa(limit)})
	if err != nil {
		return nil, types.NewError(types.Transient, "okx.candles", err)
	}

	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(k.Timestamp).UTC(),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Vol,
		})
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

// getTickers 获取现货ticker并过滤出USDT交易对
func (g *OKXGateway) getTickers(ctx context.Context) ([]okxTicker, error) {
	var data []okxTicker
	q := url.Values{"instType": {"SPOT"}}
	if err := g.call(ctx, "/api/v5/market/tickers", q, "okx.tickers", &data); err != nil {
		return nil, err
	}

	usdtTickers := make([]okxTicker, 0)
	for _, ticker := range data {
		if strings.HasSuffix(ticker.InstId, "-USDT") {
			usdtTickers = append(usdtTickers, ticker)
		}
	}
	zap.L().Debug("📊 从交易对中筛选出USDT交易对",
		zap.Int("total_pairs", len(data)),
		zap.Int("usdt_pairs", len(usdtTickers)))
	return usdtTickers, nil
}

// call 请求OKX接口并解析data字段
func (g *OKXGateway) call(ctx context.Context, path string, query url.Values, op string, out interface{}) error {
	body, err := getJSON(ctx, g.httpClient, g.baseURL+path+"?"+query.Encode(), op)
	if err != nil {
		return err
	}

	// 解析OKX API响应格式
	var apiResp struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return types.Errorf(types.Transient, op, "解析API响应失败: %w", err)
	}
	if apiResp.Code != "0" {
		return types.Errorf(types.Transient, op, "API返回错误: %s - %s", apiResp.Code, apiResp.Msg)
	}
	if err := json.Unmarshal(apiResp.Data, out); err != nil {
		return types.Errorf(types.Transient, op, "解析data失败: %w", err)
	}
	return nil
}

// okxBar 将周期转换为OKX的bar参数；6H及以上默认按UTC+8分桶，使用utc版本与Indodax重采样对齐
func okxBar(interval string) (string, bool) {
	d, ok := ParseInterval(interval)
	if !ok {
		return "", false
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dDutc", d/(24*time.Hour)), true
	case d >= 6*time.Hour:
		return fmt.Sprintf("%dHutc", d/time.Hour), true
	case d >= time.Hour:
		return fmt.Sprintf("%dH", d/time.Hour), true
	default:
		return fmt.Sprintf("%dm", d/time.Minute), true
	}
}

// okxRawField 从ticker原始响应中读取数值字段，兼容完整响应和data数组
func okxRawField(raw []byte, field string) float64 {
	for _, path := range []string{"data.0." + field, "0." + field, field} {
		if r := gjson.GetBytes(raw, path); r.Exists() {
			return r.Float()
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
