package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"desa-api/internal/metrics"
)

// 文档注释：远端最近村服务客户端
// 背景：对接独立部署的 /nearest-village 服务（与本服务同构的接口），用于多实例共享同一份村界数据。
// 约束：约定 /health 与 /nearest-village?lat=&long= 接口；404 或缺少 id 视为未命中；method 非 geofence 一律归为 distance。
type HTTP struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewHTTP(name, endpoint string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTP{name: name, endpoint: strings.TrimRight(endpoint, "/"), client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Name() string { return h.name }

// Heartbeat：访问 /health，非 200 视为不可用
func (h *HTTP) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resolver %s: health status %d", h.name, resp.StatusCode)
	}
	return nil
}

type wireMatch struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	DistanceKm float64         `json:"distance_km"`
	Method     string          `json:"method"`
}

func (h *HTTP) Resolve(ctx context.Context, lat, lng float64) (Match, error) {
	if !ValidCoord(lat, lng) {
		return Match{}, ErrInvalidCoord
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("long", strconv.FormatFloat(lng, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/nearest-village?"+q.Encode(), nil)
	if err != nil {
		return Match{}, err
	}
	t0 := time.Now()
	resp, err := h.client.Do(req)
	metrics.ResolverDurationMs.WithLabelValues(h.name).Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		return Match{}, fmt.Errorf("resolver %s: %w", h.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Match{}, ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("resolver %s: status %d", h.name, resp.StatusCode)
	}
	var w wireMatch
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Match{}, fmt.Errorf("resolver %s: decode: %w", h.name, err)
	}
	id := rawID(w.ID)
	if id == "" {
		return Match{}, ErrNoMatch
	}
	m := Match{ID: id, Name: w.Name, DistanceKm: w.DistanceKm, Method: MethodDistance}
	if w.Method == string(MethodGeofence) {
		m.Method = MethodGeofence
		m.DistanceKm = 0
	}
	return m, nil
}

// 村 ID 可能以字符串或数字下发
func rawID(b json.RawMessage) string {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(b, &str) == nil {
		return str
	}
	return s
}
