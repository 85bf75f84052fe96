package locate

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// 传感器错误（与浏览器定位错误码一一对应）
var (
	ErrUnsupported      = errors.New("geolocation not supported")
	ErrPermissionDenied = errors.New("user denied geolocation")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("timeout expired")
)

// 文档注释：位置传感器
// 约束：highAccuracy 为 false 时允许返回粗粒度读数；ctx 到期时实现应尽快返回，流程会把到期统一视为 ErrTimeout。
type Sensor interface {
	Acquire(ctx context.Context, highAccuracy bool) (Fix, error)
}

// SensorFunc：函数适配器
type SensorFunc func(ctx context.Context, highAccuracy bool) (Fix, error)

func (f SensorFunc) Acquire(ctx context.Context, highAccuracy bool) (Fix, error) {
	return f(ctx, highAccuracy)
}

// 文档注释：基于 GeoLite2/GeoIP2 City 库的 IP 粗定位
// 背景：服务端没有设备传感器；以客户端 IP 查库得到城市级坐标，精度为库中的 accuracy_radius（千米）。
// 约束：高精度请求时若库给出的半径超过 HighAccuracyKm 视为超时，由流程降级后接受粗粒度结果；库缺失或 IP 非法返回 ErrUnsupported。
type GeoIPSensor struct {
	db             *geoip2.Reader
	HighAccuracyKm uint16
}

func OpenGeoIP(path string) (*GeoIPSensor, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip: %w", err)
	}
	return &GeoIPSensor{db: db, HighAccuracyKm: 5}, nil
}

func (g *GeoIPSensor) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// ForIP：绑定客户端 IP，得到可供流程使用的传感器
func (g *GeoIPSensor) ForIP(ip string) Sensor {
	return SensorFunc(func(ctx context.Context, highAccuracy bool) (Fix, error) {
		if g == nil || g.db == nil {
			return Fix{}, ErrUnsupported
		}
		addr := net.ParseIP(ip)
		if addr == nil {
			return Fix{}, ErrUnsupported
		}
		rec, err := g.db.City(addr)
		if err != nil {
			return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		loc := rec.Location
		if loc.Latitude == 0 && loc.Longitude == 0 {
			return Fix{}, ErrUnavailable
		}
		if highAccuracy && g.HighAccuracyKm > 0 && loc.AccuracyRadius > g.HighAccuracyKm {
			return Fix{}, ErrTimeout
		}
		return Fix{Lat: loc.Latitude, Lng: loc.Longitude, AccuracyM: float64(loc.AccuracyRadius) * 1000}, nil
	})
}
