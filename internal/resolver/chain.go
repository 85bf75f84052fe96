package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
)

type status struct {
	healthy bool
	last    time.Time
}

// 文档注释：查询链（按注册顺序依次尝试健康的实现）
// 背景：本地索引优先，远端服务兜底；心跳异常的实现自动剔除，恢复后重新参与。
// 约束：心跳周期默认 10s；某一实现未命中时继续尝试下一个；全部未命中返回 ErrNoMatch，存在其他错误时返回最后一个错误。
type Chain struct {
	mu         sync.RWMutex
	rs         []Resolver
	st         map[string]status
	hbInterval time.Duration
}

func NewChain(rs ...Resolver) *Chain {
	c := &Chain{st: make(map[string]status), hbInterval: 10 * time.Second}
	for _, r := range rs {
		c.Register(r)
	}
	return c
}

// Register：追加实现，默认视为健康
func (c *Chain) Register(r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rs = append(c.rs, r)
	c.st[r.Name()] = status{healthy: true, last: time.Now()}
	logger.L().Info("resolver_registered", "name", r.Name())
}

func (c *Chain) Name() string { return "chain" }

// Healthy：当前健康的实现（保持注册顺序）
func (c *Chain) Healthy() []Resolver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Resolver
	for _, r := range c.rs {
		if c.st[r.Name()].healthy {
			out = append(out, r)
		}
	}
	return out
}

// Start：启动心跳循环，ctx 取消时停止
func (c *Chain) Start(ctx context.Context) {
	t := time.NewTicker(c.hbInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Heartbeat(ctx)
			}
		}
	}()
}

// Heartbeat：探测全部实现并刷新健康状态；任一健康即返回 nil
func (c *Chain) Heartbeat(ctx context.Context) error {
	c.mu.RLock()
	rs := append([]Resolver(nil), c.rs...)
	c.mu.RUnlock()
	// 探测期间不持锁，避免远端超时阻塞查询路径
	next := make(map[string]status, len(rs))
	anyOK := false
	for _, r := range rs {
		err := r.Heartbeat(ctx)
		next[r.Name()] = status{healthy: err == nil, last: time.Now()}
		if err != nil {
			logger.L().Debug("resolver_heartbeat_fail", "name", r.Name(), "err", err)
			metrics.ResolverHeartbeatTotal.WithLabelValues(r.Name(), "fail").Inc()
			continue
		}
		anyOK = true
		metrics.ResolverHeartbeatTotal.WithLabelValues(r.Name(), "ok").Inc()
	}
	c.mu.Lock()
	for k, s := range next {
		c.st[k] = s
	}
	c.mu.Unlock()
	if !anyOK {
		return errNoHealthy
	}
	return nil
}

var errNoHealthy = errors.New("resolver: no healthy resolver")

func (c *Chain) Resolve(ctx context.Context, lat, lng float64) (Match, error) {
	if !ValidCoord(lat, lng) {
		return Match{}, ErrInvalidCoord
	}
	hs := c.Healthy()
	if len(hs) == 0 {
		metrics.ResolverRequestsTotal.WithLabelValues(c.Name(), "unavailable").Inc()
		return Match{}, errNoHealthy
	}
	var lastErr error
	for _, r := range hs {
		m, err := r.Resolve(ctx, lat, lng)
		if err == nil {
			metrics.ResolverRequestsTotal.WithLabelValues(r.Name(), string(m.Method)).Inc()
			return m, nil
		}
		if errors.Is(err, ErrNoMatch) {
			metrics.ResolverRequestsTotal.WithLabelValues(r.Name(), "miss").Inc()
			continue
		}
		metrics.ResolverRequestsTotal.WithLabelValues(r.Name(), "error").Inc()
		logger.L().Warn("resolver_error", "name", r.Name(), "err", err)
		lastErr = err
		if ctx.Err() != nil {
			return Match{}, ctx.Err()
		}
	}
	if lastErr != nil {
		return Match{}, lastErr
	}
	return Match{}, ErrNoMatch
}
