package store

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/revgeo"
	"desa-api/internal/village"
)

// 文档注释：一次激活得到的只读视图
// 约束：Boundaries 为 nil 表示村界仍在加载，记录展示不依赖村界。
type View struct {
	Records    []village.Record
	Boundaries *revgeo.BoundarySet
	FetchedAt  time.Time
	byID       map[string]int
}

func newView(recs []village.Record, b *revgeo.BoundarySet) *View {
	v := &View{Records: recs, Boundaries: b, FetchedAt: time.Now(), byID: make(map[string]int, len(recs))}
	for i, r := range recs {
		if _, dup := v.byID[r.ID]; dup {
			logger.L().Warn("village_duplicate_id", "id", r.ID)
			continue
		}
		v.byID[r.ID] = i
	}
	return v
}

// Get：按村 ID 取记录
func (v *View) Get(id string) (village.Record, error) {
	if i, ok := v.byID[id]; ok {
		return v.Records[i], nil
	}
	return village.Record{}, ErrNotFound
}

// Centroids：有坐标的村中心点，供最近村兜底
func (v *View) Centroids() []revgeo.Centroid {
	out := make([]revgeo.Centroid, 0, len(v.Records))
	for _, r := range v.Records {
		if r.Latitude == 0 && r.Longitude == 0 {
			continue
		}
		out = append(out, revgeo.Centroid{ID: r.ID, Name: r.Name, Lat: r.Latitude, Lon: r.Longitude})
	}
	return out
}

// 文档注释：记录存储
// 背景：记录集合每次激活重新拉取；村界经 BoundaryCache 进程内只拉取一次，由调用方显式持有。
type Store struct {
	src        RecordSource
	boundaries *BoundaryCache
}

func New(src RecordSource) *Store {
	return &Store{src: src, boundaries: NewBoundaryCache(src.FetchBoundaries)}
}

// Boundaries：共享的村界缓存
func (s *Store) Boundaries() *BoundaryCache { return s.boundaries }

// 文档注释：激活（对应一次视图挂载）
// 背景：重新拉取记录；村界已缓存时直接附带，否则在后台预热并以 nil 返回，不阻塞记录展示。
// 约束：记录拉取失败返回错误；村界失败只记录日志。
func (s *Store) Activate(ctx context.Context) (*View, error) {
	recs, err := s.fetchRecords(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := s.boundaries.Peek()
	if !ok {
		go func() {
			if _, err := s.boundaries.Get(context.WithoutCancel(ctx)); err != nil {
				logger.L().Debug("boundary_warm_fail", "err", err)
			}
		}()
	}
	return newView(recs, b), nil
}

// 文档注释：启动预热
// 背景：服务启动时并发拉取记录与村界，二者互不等待；用于构建首个反查索引。
// 约束：仅记录失败会返回错误；村界失败时视图的 Boundaries 为 nil。
func (s *Store) Prime(ctx context.Context) (*View, error) {
	var (
		recs []village.Record
		b    *revgeo.BoundarySet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = s.fetchRecords(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if b, err = s.boundaries.Get(gctx); err != nil {
			logger.L().Warn("boundary_prime_fail", "err", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newView(recs, b), nil
}

func (s *Store) fetchRecords(ctx context.Context) ([]village.Record, error) {
	t0 := time.Now()
	recs, err := s.src.FetchRecords(ctx)
	metrics.RecordFetchDurationMs.WithLabelValues(s.src.Name()).Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.RecordFetchTotal.WithLabelValues(s.src.Name(), "fail").Inc()
		logger.L().Warn("record_fetch_fail", "source", s.src.Name(), "err", err)
		return nil, err
	}
	metrics.RecordFetchTotal.WithLabelValues(s.src.Name(), "ok").Inc()
	logger.L().Debug("record_fetch_ok", "source", s.src.Name(), "count", len(recs))
	return recs, nil
}
