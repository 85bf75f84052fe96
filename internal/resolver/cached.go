package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
)

// 文档注释：Redis 结果缓存装饰器
// 背景：热点区域（村委会、集市）被反复定位；命中结果按坐标写入 Redis，多实例共享。
// 约束：键为 "nearest:<lat>:<lng>"（保留 4 位小数，约 11m）；仅缓存命中结果；Redis 故障不影响查询，只记录日志。
type Cached struct {
	next Resolver
	rc   *redis.Client
	ttl  time.Duration
}

func NewCached(next Resolver, rc *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{next: next, rc: rc, ttl: ttl}
}

func (c *Cached) Name() string { return c.next.Name() + "+redis" }

func (c *Cached) Heartbeat(ctx context.Context) error { return c.next.Heartbeat(ctx) }

func (c *Cached) Resolve(ctx context.Context, lat, lng float64) (Match, error) {
	if c.rc == nil {
		return c.next.Resolve(ctx, lat, lng)
	}
	key := cacheKey(lat, lng)
	s, err := c.rc.Get(ctx, key).Result()
	switch {
	case err == nil:
		var m Match
		if json.Unmarshal([]byte(s), &m) == nil && m.ID != "" {
			metrics.ResolverCacheHitsTotal.Inc()
			return m, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.L().Debug("resolver_cache_get_error", "key", key, "err", err)
	}
	metrics.ResolverCacheMissesTotal.Inc()
	m, err := c.next.Resolve(ctx, lat, lng)
	if err != nil {
		return m, err
	}
	if b, e := json.Marshal(m); e == nil {
		if e := c.rc.Set(ctx, key, b, c.ttl).Err(); e != nil {
			logger.L().Debug("resolver_cache_set_error", "key", key, "err", e)
		}
	}
	return m, nil
}

func cacheKey(lat, lng float64) string { return fmt.Sprintf("nearest:%.4f:%.4f", lat, lng) }
