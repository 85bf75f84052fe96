package revgeo

import "math"

// 文档注释：点入多边形判定（Even-Odd）
// 背景：对候选村界执行精确命中判定；支持洞与多面结构。
// 约束：输入为经纬度坐标（WGS84）；边界临界值易受数值误差影响，由模糊匹配阶段兜底。
func pointInPoly(pt Point, poly Polygon) bool {
    // 外环命中且不在洞内视为命中
    if len(poly.Rings) == 0 { return false }
    if !pointInRing(pt, poly.Rings[0]) { return false }
    for i := 1; i < len(poly.Rings); i++ {
        if pointInRing(pt, poly.Rings[i]) { return false }
    }
    return true
}

// 射线法判定点是否在环内
func pointInRing(pt Point, ring []Point) bool {
    n := len(ring)
    if n < 3 { return false }
    inside := false
    x := pt.Lon
    y := pt.Lat
    for i, j := 0, n-1; i < n; j, i = i, i+1 {
        xi := ring[i].Lon; yi := ring[i].Lat
        xj := ring[j].Lon; yj := ring[j].Lat
        intersect := ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi+1e-12)+xi)
        if intersect { inside = !inside }
    }
    return inside
}

// 快速包围盒过滤
func inBBox(pt Point, b [4]float64) bool {
    return pt.Lon >= b[0] && pt.Lon <= b[2] && pt.Lat >= b[1] && pt.Lat <= b[3]
}

// 包围盒外扩 pad 度后的过滤（模糊匹配用）
func nearBBox(pt Point, b [4]float64, pad float64) bool {
    return pt.Lon >= b[0]-pad && pt.Lon <= b[2]+pad && pt.Lat >= b[1]-pad && pt.Lat <= b[3]+pad
}

// 文档注释：点到多边形边界的平面距离（单位：度）
// 背景：用于村界外侧附近的模糊匹配；在约 500m 量级内平面近似误差可忽略。
func distToPoly(pt Point, poly Polygon) float64 {
    best := math.MaxFloat64
    for _, ring := range poly.Rings {
        n := len(ring)
        for i := 0; i+1 < n; i++ {
            if d := distToSegment(pt, ring[i], ring[i+1]); d < best { best = d }
        }
    }
    return best
}

func distToSegment(p, a, b Point) float64 {
    dx := b.Lon - a.Lon
    dy := b.Lat - a.Lat
    l2 := dx*dx + dy*dy
    t := 0.0
    if l2 > 0 {
        t = ((p.Lon-a.Lon)*dx + (p.Lat-a.Lat)*dy) / l2
        t = math.Max(0, math.Min(1, t))
    }
    x := a.Lon + t*dx - p.Lon
    y := a.Lat + t*dy - p.Lat
    return math.Sqrt(x*x + y*y)
}
