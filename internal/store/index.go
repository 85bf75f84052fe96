package store

import (
	"context"

	"desa-api/internal/logger"
	"desa-api/internal/revgeo"
)

// 文档注释：以最新记录构建反查索引
// 背景：中心点取本次激活拉取的记录，村界取进程内缓存（未就绪时为 nil）；记录拉取失败时退回 fallback 的中心点。
// 约束：fallback 为 nil 且记录拉取失败时返回错误，不产出索引。
func (s *Store) BuildIndex(ctx context.Context, opts revgeo.Options, fallback *View) (*revgeo.Index, error) {
	v, err := s.Activate(ctx)
	if err != nil {
		if fallback == nil {
			return nil, err
		}
		logger.L().Warn("index_build_fallback", "err", err, "records", len(fallback.Records))
		v = fallback
	}
	b, _ := s.boundaries.Peek()
	return revgeo.NewIndex(&revgeo.Snapshot{Boundaries: b, Centroids: v.Centroids()}, opts), nil
}
