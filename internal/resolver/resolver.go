package resolver

import (
	"context"
	"errors"
	"math"
	"strconv"
)

// Method：命中方式
type Method string

const (
	MethodGeofence Method = "geofence" // 村界多边形精确包含
	MethodDistance Method = "distance" // 距离兜底（邻近村界或最近中心点）
)

var (
	ErrNoMatch      = errors.New("resolver: no matching village")
	ErrInvalidCoord = errors.New("resolver: coordinate out of range")
)

// 文档注释：最近村查询结果
// 约束：Method 为 geofence 时 DistanceKm 恒为 0，调用方不应向用户展示距离。
type Match struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
	Method     Method  `json:"method"`
}

// ShowDistance：是否需要展示距离
func (m Match) ShowDistance() bool { return m.Method != MethodGeofence }

// Label：面向用户的距离描述，例如 "Sukorejo (0.334km)"；geofence 命中仅返回村名
func (m Match) Label() string {
	if !m.ShowDistance() {
		return m.Name
	}
	return m.Name + " (" + strconv.FormatFloat(m.DistanceKm, 'f', -1, 64) + "km)"
}

// 文档注释：最近村查询契约
// 背景：本地索引、远端服务与缓存装饰器实现同一接口，由 Chain 统一调度。
// 约束：未命中返回 ErrNoMatch；坐标越界返回 ErrInvalidCoord；Heartbeat 失败的实现会被 Chain 暂时剔除。
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, lat, lng float64) (Match, error)
	Heartbeat(ctx context.Context) error
}

// ValidCoord：经纬度是否合法（NaN/Inf/越界均视为非法）
func ValidCoord(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
