package store

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/revgeo"
)

// BoundaryFetcher：村界文档拉取函数
type BoundaryFetcher func(ctx context.Context) ([]byte, error)

// 文档注释：进程级村界缓存
// 背景：村界文档约 1.6MB 且几乎不变；首次成功拉取并解析后常驻，供 /boundaries 透传与反查索引共享。
// 约束：只填充一次，不提供失效接口；并发首次请求合并为一次拉取；失败不缓存，下次调用重新拉取。
type BoundaryCache struct {
	fetch   BoundaryFetcher
	sf      singleflight.Group
	val     atomic.Pointer[revgeo.BoundarySet]
	fetches atomic.Int64
	ready   chan struct{}
}

func NewBoundaryCache(fetch BoundaryFetcher) *BoundaryCache {
	return &BoundaryCache{fetch: fetch, ready: make(chan struct{})}
}

// Get：返回已缓存的村界；未缓存时拉取（阻塞到完成或 ctx 结束）
func (c *BoundaryCache) Get(ctx context.Context) (*revgeo.BoundarySet, error) {
	if v := c.val.Load(); v != nil {
		return v, nil
	}
	ch := c.sf.DoChan("boundaries", func() (interface{}, error) {
		if v := c.val.Load(); v != nil {
			return v, nil
		}
		return c.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*revgeo.BoundarySet), nil
	}
}

func (c *BoundaryCache) load(ctx context.Context) (*revgeo.BoundarySet, error) {
	t0 := time.Now()
	c.fetches.Add(1)
	raw, err := c.fetch(ctx)
	if err != nil {
		metrics.BoundaryFetchTotal.WithLabelValues("fail").Inc()
		logger.L().Warn("boundary_fetch_fail", "err", err)
		return nil, err
	}
	set, err := revgeo.ParseBoundaries(raw)
	if err != nil {
		metrics.BoundaryFetchTotal.WithLabelValues("invalid").Inc()
		logger.L().Warn("boundary_parse_fail", "bytes", len(raw), "err", err)
		return nil, err
	}
	if c.val.CompareAndSwap(nil, set) {
		close(c.ready)
	}
	metrics.BoundaryFetchTotal.WithLabelValues("ok").Inc()
	logger.L().Info("boundary_fetch_ok", "units", set.Len(), "bytes", len(raw), "ms", time.Since(t0).Milliseconds())
	return c.val.Load(), nil
}

// Peek：不触发拉取，返回当前缓存；未就绪时 ok=false（调用方按“加载中”处理）
func (c *BoundaryCache) Peek() (*revgeo.BoundarySet, bool) {
	v := c.val.Load()
	return v, v != nil
}

// Ready：村界首次就绪时关闭
func (c *BoundaryCache) Ready() <-chan struct{} { return c.ready }

// Fetches：实际发起的拉取次数（缓存命中不计）
func (c *BoundaryCache) Fetches() int64 { return c.fetches.Load() }
