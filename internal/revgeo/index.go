package revgeo

import (
    "math"
    "os"
    "strconv"
    "time"
)

// Stage：命中阶段
type Stage string

const (
    StageGeofence Stage = "geofence" // 村界内精确命中
    StageFuzzy    Stage = "fuzzy"    // 村界外侧邻近（默认约 500m 内）
    StageCentroid Stage = "centroid" // 最近村中心点
)

// Hit：一次反查命中的村
type Hit struct {
    ID         string
    Name       string
    DistanceKm float64
    Stage      Stage
}

// Options：索引参数
type Options struct {
    FuzzyDeg    float64
    MaxRadiusKm float64
    CacheSize   int
    CacheTTL    time.Duration
}

func DefaultOptions() Options {
    return Options{FuzzyDeg: 0.005, MaxRadiusKm: 50, CacheSize: 4096, CacheTTL: time.Hour}
}

// OptionsFromEnv：读取 RESOLVER_FUZZY_DEG / RESOLVER_MAX_RADIUS_KM / REVERSE_GEO_CACHE_TTL_S，非法值回退默认
func OptionsFromEnv() Options {
    o := DefaultOptions()
    if s := os.Getenv("RESOLVER_FUZZY_DEG"); s != "" { if f, e := strconv.ParseFloat(s, 64); e == nil && f >= 0 { o.FuzzyDeg = f } }
    if s := os.Getenv("RESOLVER_MAX_RADIUS_KM"); s != "" { if f, e := strconv.ParseFloat(s, 64); e == nil && f > 0 { o.MaxRadiusKm = f } }
    if s := os.Getenv("REVERSE_GEO_CACHE_TTL_S"); s != "" { if n, e := strconv.Atoi(s); e == nil && n > 0 { o.CacheTTL = time.Duration(n) * time.Second } }
    return o
}

// 文档注释：村级反查索引（包围盒候选 → PIP 命中 → 邻近村界 → 最近中心点）
// 背景：优先多边形精确包含；坐标落在村界缝隙或略出边界时按最近村界归属；仍未命中时按中心点距离兜底。
// 约束：快照只读；Query 可并发调用，唯一的可变状态是内部 LRU。
type Index struct {
    snap  *Snapshot
    kd    *kdNode
    cache *LRU
    opts  Options
}

func NewIndex(snap *Snapshot, opts Options) *Index {
    if snap == nil { snap = &Snapshot{} }
    if snap.BuiltAt.IsZero() { snap.BuiltAt = time.Now() }
    kd := buildTree(append([]Centroid(nil), snap.Centroids...))
    return &Index{snap: snap, kd: kd, cache: NewLRU(opts.CacheSize, opts.CacheTTL), opts: opts}
}

// Snapshot：当前快照（只读）
func (x *Index) Snapshot() *Snapshot { return x.snap }

// Query：按坐标反查村；ok=false 表示超出兜底半径或快照为空
func (x *Index) Query(lat, lon float64) (Hit, bool) {
    key := encodeGeohash(lat, lon, cachePrecision)
    if h, ok := x.cache.Get(key); ok { return h, true }
    pt := Point{Lat: lat, Lon: lon}
    if h, ok := x.geofence(pt); ok {
        x.cache.Set(key, h)
        return h, true
    }
    if h, ok := x.fuzzy(pt); ok {
        x.cache.Set(key, h)
        return h, true
    }
    if c, d, ok := nearest(x.kd, pt); ok && d <= x.opts.MaxRadiusKm {
        h := Hit{ID: c.ID, Name: c.Name, DistanceKm: round2(d), Stage: StageCentroid}
        x.cache.Set(key, h)
        return h, true
    }
    return Hit{}, false
}

func (x *Index) geofence(pt Point) (Hit, bool) {
    bs := x.snap.Boundaries
    if bs == nil { return Hit{}, false }
    for i := range bs.Units {
        u := &bs.Units[i]
        for _, p := range u.Polys {
            if inBBox(pt, p.BBox) && pointInPoly(pt, p) {
                return Hit{ID: u.ID, Name: u.Name, Stage: StageGeofence}, true
            }
        }
    }
    return Hit{}, false
}

func (x *Index) fuzzy(pt Point) (Hit, bool) {
    bs := x.snap.Boundaries
    if bs == nil || x.opts.FuzzyDeg <= 0 { return Hit{}, false }
    best := -1
    bestD := math.MaxFloat64
    for i := range bs.Units {
        for _, p := range bs.Units[i].Polys {
            if !nearBBox(pt, p.BBox, x.opts.FuzzyDeg) { continue }
            if d := distToPoly(pt, p); d < bestD { bestD = d; best = i }
        }
    }
    if best < 0 || bestD > x.opts.FuzzyDeg { return Hit{}, false }
    u := bs.Units[best]
    // 度 → 米按赤道近似换算，取整米后再转千米
    meters := math.Round(bestD * 111320)
    return Hit{ID: u.ID, Name: u.Name, DistanceKm: meters / 1000, Stage: StageFuzzy}, true
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
