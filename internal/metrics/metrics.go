package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desa_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"route"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desa_rate_limited_total",
		Help: "Total requests rejected by the token bucket",
	})
	RecordFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_record_fetch_total",
		Help: "Record collection fetches by source and status",
	}, []string{"source", "status"})
	RecordFetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desa_record_fetch_duration_ms",
		Help:    "Record collection fetch duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"source"})
	BoundaryFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_boundary_fetch_total",
		Help: "Underlying boundary fetches by status (cache hits are not counted)",
	}, []string{"status"})
	ResolverRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_resolver_requests_total",
		Help: "Nearest-village resolutions by resolver and result (geofence|distance|miss|error)",
	}, []string{"resolver", "result"})
	ResolverDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desa_resolver_duration_ms",
		Help:    "Nearest-village resolution duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"resolver"})
	ResolverHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_resolver_heartbeat_total",
		Help: "Resolver heartbeat count by status",
	}, []string{"resolver", "status"})
	ResolverCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desa_resolver_cache_hits_total",
		Help: "Total redis resolver cache hits",
	})
	ResolverCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desa_resolver_cache_misses_total",
		Help: "Total redis resolver cache misses",
	})
	LocateOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desa_locate_outcomes_total",
		Help: "Location workflow outcomes by path (auto|manual) and outcome",
	}, []string{"path", "outcome"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(RecordFetchTotal)
	prometheus.MustRegister(RecordFetchDurationMs)
	prometheus.MustRegister(BoundaryFetchTotal)
	prometheus.MustRegister(ResolverRequestsTotal)
	prometheus.MustRegister(ResolverDurationMs)
	prometheus.MustRegister(ResolverHeartbeatTotal)
	prometheus.MustRegister(ResolverCacheHitsTotal)
	prometheus.MustRegister(ResolverCacheMissesTotal)
	prometheus.MustRegister(LocateOutcomesTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
