package revgeo

import (
    "encoding/json"
    "fmt"
    "os"
    "strconv"

    "github.com/twpayne/go-geom"
    "github.com/twpayne/go-geom/encoding/geojson"
)

// 村界要素属性键（BPS 村界数据）
const (
    propID   = "iddesa"
    propName = "nmdesa"
)

// 文档注释：解析村界 GeoJSON（FeatureCollection）
// 背景：原始文档约 1.6MB，解析一次后常驻；保留原始字节供前端渲染透传。
// 约束：缺少 iddesa 或几何非面状的要素会被跳过；文档整体无法解析时返回错误。
func ParseBoundaries(raw []byte) (*BoundarySet, error) {
    var fc geojson.FeatureCollection
    if err := json.Unmarshal(raw, &fc); err != nil {
        return nil, fmt.Errorf("parse boundaries: %w", err)
    }
    set := &BoundarySet{Raw: raw, byID: make(map[string]int, len(fc.Features))}
    for _, f := range fc.Features {
        if f == nil || f.Geometry == nil { continue }
        id := propString(f.Properties, propID)
        if id == "" { id = f.ID }
        if id == "" { continue }
        b := Boundary{ID: id, Name: propString(f.Properties, propName)}
        addPolys(&b, f.Geometry)
        if len(b.Polys) == 0 { continue }
        set.byID[id] = len(set.Units)
        set.Units = append(set.Units, b)
    }
    return set, nil
}

// LoadBoundaryFile：从本地文件读取并解析村界
func LoadBoundaryFile(path string) (*BoundarySet, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    return ParseBoundaries(b)
}

func addPolys(b *Boundary, g geom.T) {
    switch t := g.(type) {
    case *geom.Polygon:
        b.Polys = append(b.Polys, toPolygon(t.Coords()))
    case *geom.MultiPolygon:
        for _, part := range t.Coords() {
            b.Polys = append(b.Polys, toPolygon(part))
        }
    }
}

func toPolygon(rings [][]geom.Coord) Polygon {
    var poly Polygon
    for _, ring := range rings {
        rr := make([]Point, 0, len(ring))
        for _, c := range ring {
            if len(c) < 2 { continue }
            rr = append(rr, Point{Lat: c.Y(), Lon: c.X()})
        }
        poly.Rings = append(poly.Rings, rr)
    }
    poly.BBox = computeBBox(poly)
    return poly
}

func computeBBox(p Polygon) [4]float64 {
    b := [4]float64{180, 90, -180, -90}
    for _, r := range p.Rings {
        for _, pt := range r {
            if pt.Lon < b[0] { b[0] = pt.Lon }
            if pt.Lat < b[1] { b[1] = pt.Lat }
            if pt.Lon > b[2] { b[2] = pt.Lon }
            if pt.Lat > b[3] { b[3] = pt.Lat }
        }
    }
    return b
}

// 属性值可能是字符串或数字（部分导出工具会把 iddesa 写成数值）
func propString(m map[string]interface{}, k string) string {
    switch v := m[k].(type) {
    case string:
        return v
    case float64:
        return strconv.FormatFloat(v, 'f', -1, 64)
    case json.Number:
        return v.String()
    default:
        return ""
    }
}
