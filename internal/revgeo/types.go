package revgeo

import "time"

// 文档注释：村界与空间索引的最小数据结构
// 背景：承载村级边界（iddesa/nmdesa）与村中心点；保持轻量以便常驻内存与快速判定。
// 约束：几何仅支持 GeoJSON 的 Polygon/MultiPolygon；以环列表表达，第一环为外环，其余为洞。
type Boundary struct {
    ID    string
    Name  string
    Polys []Polygon
}

// Polygon：按 GeoJSON 约定的环集合，第一环是外环，其后为洞
type Polygon struct {
    Rings [][]Point
    BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

// 点坐标（WGS84）
type Point struct { Lat float64; Lon float64 }

// 村中心点（用于 KD-Tree 最近邻兜底），通常来自村级记录的经纬度
type Centroid struct {
    ID   string
    Name string
    Lat  float64
    Lon  float64
}

// 边界集合：原始文档用于对外透传，解析结果用于判定
type BoundarySet struct {
    Raw   []byte
    Units []Boundary
    byID  map[string]int
}

// Lookup：按村 ID 取边界
func (b *BoundarySet) Lookup(id string) (Boundary, bool) {
    if b == nil { return Boundary{}, false }
    if i, ok := b.byID[id]; ok { return b.Units[i], true }
    return Boundary{}, false
}

func (b *BoundarySet) Len() int {
    if b == nil { return 0 }
    return len(b.Units)
}

// 查询快照：只读引用，供查询期共享
type Snapshot struct {
    Boundaries *BoundarySet
    Centroids  []Centroid
    BuiltAt    time.Time
}
