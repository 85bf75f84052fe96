package revgeo

import "math"

// 文档注释：KD-Tree 最近邻（二维经纬）
// 背景：在村界未命中且模糊匹配失败时，按村中心点给出最近村；限制最大半径避免远离辖区的坐标被误归属。
// 约束：经度/纬度交替分割；仅支持最近一个点查询；经纬度同时为 0 的中心点视为缺失，不入树。
type kdNode struct {
    c   Centroid
    ax  int // 0:lon,1:lat
    l   *kdNode
    r   *kdNode
}

func buildTree(cs []Centroid) *kdNode {
    valid := make([]Centroid, 0, len(cs))
    for _, c := range cs {
        if c.Lat == 0 && c.Lon == 0 { continue }
        valid = append(valid, c)
    }
    return buildKD(valid, 0)
}

func buildKD(cs []Centroid, depth int) *kdNode {
    if len(cs) == 0 { return nil }
    ax := depth % 2
    mid := len(cs) / 2
    selectNth(cs, mid, ax)
    node := &kdNode{c: cs[mid], ax: ax}
    node.l = buildKD(cs[:mid], depth+1)
    node.r = buildKD(cs[mid+1:], depth+1)
    return node
}

// 原地 nth 元素选择（轴为经度/纬度）
func selectNth(a []Centroid, n int, ax int) {
    lo, hi := 0, len(a)-1
    for lo < hi {
        p := partition(a, lo, hi, (lo+hi)/2, ax)
        if p == n { return }
        if n < p { hi = p - 1 } else { lo = p + 1 }
    }
}

func partition(a []Centroid, lo, hi, pivot, ax int) int {
    pv := a[pivot]
    a[pivot], a[hi] = a[hi], a[pivot]
    i := lo
    for j := lo; j < hi; j++ {
        if axisVal(a[j], ax) < axisVal(pv, ax) { a[i], a[j] = a[j], a[i]; i++ }
    }
    a[i], a[hi] = a[hi], a[i]
    return i
}

func axisVal(c Centroid, ax int) float64 {
    if ax == 0 { return c.Lon }
    return c.Lat
}

// 最近邻查询，返回中心点与距离（千米）；空树返回 ok=false
func nearest(node *kdNode, pt Point) (Centroid, float64, bool) {
    if node == nil { return Centroid{}, 0, false }
    best := Centroid{}
    bestD := math.MaxFloat64
    // 经度方向 1° 的千米数随纬度收缩，剪枝时取保守值
    kmPerDegLon := 111.32 * math.Max(math.Cos(pt.Lat*math.Pi/180), 0.01)
    var dfs func(n *kdNode)
    dfs = func(n *kdNode) {
        if n == nil { return }
        d := haversine(pt.Lat, pt.Lon, n.c.Lat, n.c.Lon)
        if d < bestD { bestD = d; best = n.c }
        key, q := pt.Lat, n.c.Lat
        scale := 110.57
        if n.ax == 0 { key, q, scale = pt.Lon, n.c.Lon, kmPerDegLon }
        first, second := n.l, n.r
        if key > q { first, second = n.r, n.l }
        dfs(first)
        // 仅当分割平面到查询点的距离小于当前最优距离时才遍历另一侧
        if math.Abs(key-q)*scale < bestD { dfs(second) }
    }
    dfs(node)
    return best, bestD, true
}

// 球面距离（Haversine），返回千米
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
    const R = 6371.0
    dLat := (lat2 - lat1) * math.Pi / 180
    dLon := (lon2 - lon1) * math.Pi / 180
    a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
    return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
