package revgeo

import "strings"

// 文档注释：轻量 geohash 编码（base32），仅用作查询缓存键
// 约束：村级粒度取 7 位（约 150m），更粗的精度会让相邻村共用缓存项。
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

const cachePrecision = 7

func encodeGeohash(lat, lon float64, precision int) string {
    latLo, latHi := -90.0, 90.0
    lonLo, lonHi := -180.0, 180.0
    var sb strings.Builder
    bit, ch, even := 0, 0, true
    for sb.Len() < precision {
        if even {
            mid := (lonLo + lonHi) / 2
            if lon >= mid { ch |= 1 << (4 - bit); lonLo = mid } else { lonHi = mid }
        } else {
            mid := (latLo + latHi) / 2
            if lat >= mid { ch |= 1 << (4 - bit); latLo = mid } else { latHi = mid }
        }
        even = !even
        if bit < 4 { bit++ } else { sb.WriteByte(base32[ch]); bit = 0; ch = 0 }
    }
    return sb.String()
}
