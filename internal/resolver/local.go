package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/revgeo"
)

// 文档注释：进程内最近村查询
// 背景：包装 revgeo.Index；村界数据异步到达后通过 Swap 整体替换索引，查询路径无锁。
// 约束：邻近村界与中心点兜底均以 distance 方式对外呈现。
type Local struct {
	idx atomic.Pointer[revgeo.Index]
}

func NewLocal(idx *revgeo.Index) *Local {
	l := &Local{}
	if idx != nil {
		l.idx.Store(idx)
	}
	return l
}

// Swap：替换索引（村界或中心点更新后调用）
func (l *Local) Swap(idx *revgeo.Index) { l.idx.Store(idx) }

func (l *Local) Name() string { return "local" }

func (l *Local) Resolve(ctx context.Context, lat, lng float64) (Match, error) {
	if err := ctx.Err(); err != nil {
		return Match{}, err
	}
	if !ValidCoord(lat, lng) {
		return Match{}, ErrInvalidCoord
	}
	idx := l.idx.Load()
	if idx == nil {
		return Match{}, ErrNoMatch
	}
	t0 := time.Now()
	h, ok := idx.Query(lat, lng)
	metrics.ResolverDurationMs.WithLabelValues(l.Name()).Observe(float64(time.Since(t0).Milliseconds()))
	if !ok {
		logger.L().Debug("resolver_miss", "name", l.Name(), "lat", lat, "lng", lng)
		return Match{}, ErrNoMatch
	}
	m := Match{ID: h.ID, Name: h.Name, DistanceKm: h.DistanceKm, Method: MethodDistance}
	if h.Stage == revgeo.StageGeofence {
		m.Method = MethodGeofence
		m.DistanceKm = 0
	}
	logger.L().Debug("resolver_hit", "name", l.Name(), "id", m.ID, "stage", string(h.Stage), "km", m.DistanceKm)
	return m, nil
}

// Heartbeat：索引已装载且至少有村界或中心点之一
func (l *Local) Heartbeat(ctx context.Context) error {
	idx := l.idx.Load()
	if idx == nil {
		return errIndexEmpty
	}
	s := idx.Snapshot()
	if s.Boundaries.Len() == 0 && len(s.Centroids) == 0 {
		return errIndexEmpty
	}
	return nil
}

var errIndexEmpty = errors.New("resolver: index not loaded")
