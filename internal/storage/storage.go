package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

const (
	cacheKeyPrefix = "sentry:candles:"
	scanBatch      = 100
)

type cacheEntry struct {
	candles []types.Candle
	expires time.Time
}

// CandleCache K线缓存，Redis不可用时退化为纯内存模式
type CandleCache struct {
	mu          sync.RWMutex
	memory      map[string]cacheEntry
	ttl         time.Duration
	redisClient *redis.Client
	useRedis    bool
	now         func() time.Time
}

func NewCandleCache(redisConfig types.RedisConfig, ttl time.Duration) *CandleCache {
	cc := &CandleCache{
		memory: make(map[string]cacheEntry),
		ttl:    ttl,
		now:    time.Now,
	}

	// 尝试连接Redis
	if redisConfig.URL != "" {
		cc.redisClient = redis.NewClient(&redis.Options{
			Addr:     redisConfig.URL,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := cc.redisClient.Ping(ctx).Result(); err != nil {
			zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
			_ = cc.redisClient.Close()
			cc.redisClient = nil
		} else {
			zap.L().Info("✅ Redis连接成功", zap.String("addr", redisConfig.URL))
			cc.useRedis = true
		}
	} else {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
	}

	return cc
}

// Key 缓存键
func Key(pair, interval string, limit int) string {
	return fmt.Sprintf("%s%s:%s:%d", cacheKeyPrefix, pair, interval, limit)
}

// Enabled TTL为0时不缓存
func (cc *CandleCache) Enabled() bool {
	return cc != nil && cc.ttl > 0
}

// Get 读取缓存，未命中返回false
func (cc *CandleCache) Get(ctx context.Context, key string) ([]types.Candle, bool) {
	if !cc.Enabled() {
		return nil, false
	}

	if cc.useRedis {
		data, err := cc.redisClient.Get(ctx, key).Bytes()
		if err == nil {
			var candles []types.Candle
			if err := json.Unmarshal(data, &candles); err == nil {
				return candles, true
			}
		} else if err != redis.Nil {
			zap.L().Warn("⚠️ Redis读取失败", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	cc.mu.RLock()
	defer cc.mu.RUnlock()
	entry, ok := cc.memory[key]
	if !ok || cc.now().After(entry.expires) {
		return nil, false
	}
	return append([]types.Candle(nil), entry.candles...), true
}

// Set 写入缓存
func (cc *CandleCache) Set(ctx context.Context, key string, candles []types.Candle) {
	if !cc.Enabled() || len(candles) == 0 {
		return
	}

	if cc.useRedis {
		value, err := json.Marshal(candles)
		if err != nil {
			zap.L().Warn("⚠️ 序列化K线失败", zap.Error(err))
			return
		}
		if err := cc.redisClient.Set(ctx, key, value, cc.ttl).Err(); err != nil {
			zap.L().Warn("⚠️ Redis存储失败", zap.String("key", key), zap.Error(err))
		}
		return
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	now := cc.now()
	cc.memory[key] = cacheEntry{
		candles: append([]types.Candle(nil), candles...),
		expires: now.Add(cc.ttl),
	}
	// 顺带清理过期条目
	for k, e := range cc.memory {
		if now.After(e.expires) {
			delete(cc.memory, k)
		}
	}
}

// Stats 缓存统计信息
func (cc *CandleCache) Stats(ctx context.Context) map[string]interface{} {
	cc.mu.RLock()
	stats := map[string]interface{}{
		"redis_enabled": cc.useRedis,
		"memory_keys":   len(cc.memory),
		"ttl":           cc.ttl.String(),
	}
	cc.mu.RUnlock()

	if cc.useRedis {
		count, err := cc.countRedisKeys(ctx)
		if err == nil {
			stats["redis_keys"] = count
		} else {
			stats["redis_error"] = err.Error()
		}
	}
	return stats
}

// countRedisKeys 用SCAN分批统计缓存键，避免KEYS阻塞共享的Redis
func (cc *CandleCache) countRedisKeys(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := cc.redisClient.Scan(ctx, cursor, cacheKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

// Close 关闭Redis连接
func (cc *CandleCache) Close() error {
	if cc.redisClient != nil {
		return cc.redisClient.Close()
	}
	return nil
}
