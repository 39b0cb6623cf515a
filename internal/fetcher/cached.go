package fetcher

import (
	"context"

	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/pkg/types"
)

// CachedGateway 为K线请求加一层短时缓存，其它请求直接透传
type CachedGateway struct {
	Gateway
	cache *storage.CandleCache
}

// NewCachedGateway 包装网关，缓存未启用时返回原网关
func NewCachedGateway(inner Gateway, cache *storage.CandleCache) Gateway {
	if cache == nil || !cache.Enabled() {
		return inner
	}
	return &CachedGateway{Gateway: inner, cache: cache}
}

// GetCandles 命中缓存时不访问交易所，空结果不写缓存
func (c *CachedGateway) GetCandles(ctx context.Context, pair, interval string, limit int) ([]types.Candle, error) {
	key := storage.Key(pair, interval, limit)
	if candles, ok := c.cache.Get(ctx, key); ok {
		return candles, nil
	}

	candles, err := c.Gateway.GetCandles(ctx, pair, interval, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		c.cache.Set(ctx, key, candles)
	}
	return candles, nil
}
