// 包 api：集中注册 HTTP API 路由以解耦主入口；处理器只做参数解析与序列化，计算全部在 analytics/locate 中完成
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"desa-api/internal/analytics"
	"desa-api/internal/locate"
	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/resolver"
	"desa-api/internal/store"
)

// Deps：路由依赖
type Deps struct {
	Store    *store.Store
	Resolver resolver.Resolver
	Sessions *locate.Sessions
	// NewWorkflow 为新会话创建定位流程，ip 为客户端 IP（供 GeoIP 传感器使用）
	NewWorkflow func(ip string) *locate.Workflow
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /macro", instrument("macro", d.macro))
	mux.Handle("GET /micro/{id}", instrument("micro", d.micro))
	mux.Handle("GET /boundaries", instrument("boundaries", d.boundaries))
	mux.Handle("GET /kpi", instrument("kpi", d.kpi))
	mux.Handle("GET /leaderboard", instrument("leaderboard", d.leaderboard))
	mux.Handle("GET /lens", instrument("lens", d.lens))
	mux.Handle("GET /nearest-village", instrument("nearest_village", d.nearest))
	mux.Handle("GET /locate", instrument("locate", d.locateState))
	mux.Handle("POST /locate/pin", instrument("locate_pin", d.locatePin))
	mux.Handle("POST /locate/select", instrument("locate_select", d.locateSelect))
	mux.Handle("POST /locate/view", instrument("locate_view", d.locateView))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.Resolver != nil {
			if err := d.Resolver.Heartbeat(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		h(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (d Deps) activate(w http.ResponseWriter, r *http.Request) (*store.View, bool) {
	v, err := d.Store.Activate(r.Context())
	if err != nil {
		logger.L().Error("activate_error", "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Detail: "record source unavailable"})
		return nil, false
	}
	return v, true
}

func (d Deps) macro(w http.ResponseWriter, r *http.Request) {
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	items := make([]macroItem, 0, len(v.Records))
	for _, rec := range v.Records {
		items = append(items, macroItem{Record: rec, HealthRadar: analytics.ScoreHealth(rec), EducationFunnel: analytics.ScoreEducation(rec)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (d Deps) micro(w http.ResponseWriter, r *http.Request) {
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	rec, err := v.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Village not found"})
		return
	}
	signal := rec.Digital.SignalStrength
	if signal == "" {
		signal = "Unknown"
	}
	item := microItem{
		Record: rec,
		Stats:  microStats{Doctors: rec.Health.Doctors, Schools: rec.Education.SD, Markets: rec.Economy.Markets, Signal: signal},
		Analytics: microAnalytics{
			HealthRadar:       analytics.ScoreHealth(rec),
			EducationFunnel:   analytics.ScoreEducation(rec),
			IndependenceIndex: analytics.ScoreIndependence(rec),
		},
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": item})
}

// 村界：首次请求触发拉取；未就绪或拉取失败返回 503 与 loading 状态
func (d Deps) boundaries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	b, err := d.Store.Boundaries().Get(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "GeoJSON not found"})
		return
	case err != nil:
		w.Header().Set("retry-after", "5")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	w.Header().Set("content-type", "application/geo+json")
	w.Header().Set("cache-control", "public, max-age=3600")
	_, _ = w.Write(b.Raw)
}

func (d Deps) kpi(w http.ResponseWriter, r *http.Request) {
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	status := "ready"
	if v.Boundaries == nil {
		status = "loading"
	}
	writeJSON(w, http.StatusOK, kpiResponse{
		Summary:     analytics.Aggregate(v.Records),
		Income:      analytics.IncomeDistribution(v.Records),
		Electricity: analytics.ElectricityCoverage(v.Records),
		Industry:    analytics.IndustryByDistrict(v.Records),
		Signal:      analytics.SignalBreakdown(v.Records),
		Boundaries:  status,
	})
}

func (d Deps) leaderboard(w http.ResponseWriter, r *http.Request) {
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	n := analytics.LeaderboardSize
	if s := r.URL.Query().Get("n"); s != "" {
		if k, err := strconv.Atoi(s); err == nil && k > 0 && k <= 100 {
			n = k
		}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Risk:    analytics.Entries(analytics.TopN(v.Records, analytics.InfectiousCases, n), analytics.InfectiousCases),
		Economy: analytics.Entries(analytics.TopN(v.Records, analytics.MarketsAndBumdes, n), analytics.MarketsAndBumdes),
	})
}

func (d Deps) lens(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	l := analytics.LensRisk
	if mode != "" {
		var ok bool
		if l, ok = analytics.ParseLens(mode); !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "unknown lens " + strconv.Quote(mode)})
			return
		}
	}
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, lensResponse{Lens: l, Markers: analytics.ClassifyAll(v.Records, l)})
}

func parseCoord(r *http.Request, latKey, lngKey string) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get(lngKey), 64)
	if err1 != nil || err2 != nil || !resolver.ValidCoord(lat, lng) {
		return 0, 0, false
	}
	return lat, lng, true
}

func (d Deps) nearest(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := parseCoord(r, "lat", "long")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "lat and long must be valid coordinates"})
		return
	}
	m, err := d.Resolver.Resolve(r.Context(), lat, lng)
	switch {
	case errors.Is(err, resolver.ErrNoMatch):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "No villages found"})
	case err != nil:
		logger.L().Warn("nearest_village_error", "lat", lat, "lng", lng, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Detail: "resolver unavailable"})
	default:
		writeJSON(w, http.StatusOK, m)
	}
}

func (d Deps) workflow(r *http.Request) *locate.Workflow {
	ip := clientIP(r)
	return d.Sessions.Get(sessionKey(r), func() *locate.Workflow { return d.NewWorkflow(ip) })
}

// 当前会话定位状态；首次访问（idle）或 refresh=1 时发起自动定位
func (d Deps) locateState(w http.ResponseWriter, r *http.Request) {
	wf := d.workflow(r)
	if wf.State().Phase == locate.PhaseIdle || r.URL.Query().Get("refresh") == "1" {
		wf.Detect(context.WithoutCancel(r.Context()))
	}
	writeJSON(w, http.StatusOK, locateResponse{State: wf.State(), Selection: wf.Selection()})
}

func (d Deps) locatePin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "body must be {\"lat\": <float>, \"lng\": <float>}"})
		return
	}
	wf := d.workflow(r)
	if _, err := wf.Pin(context.WithoutCancel(r.Context()), req.Lat, req.Lng); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, locateResponse{State: wf.State(), Selection: wf.Selection()})
}

// 列表/地图点选村：校验 id 存在后选中并切换到详情视图
func (d Deps) locateSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "body must be {\"id\": <village id>}"})
		return
	}
	v, ok := d.activate(w, r)
	if !ok {
		return
	}
	if _, err := v.Get(req.ID); errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Village not found"})
		return
	}
	wf := d.workflow(r)
	wf.Select(req.ID)
	writeJSON(w, http.StatusOK, locateResponse{State: wf.State(), Selection: wf.Selection()})
}

// 导航切换视图，不改变选中村
func (d Deps) locateView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "body must be {\"view\": \"macro\" | \"micro\"}"})
		return
	}
	switch req.View {
	case locate.ViewMacro, locate.ViewDetail:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "unknown view " + strconv.Quote(string(req.View))})
		return
	}
	wf := d.workflow(r)
	wf.SetView(req.View)
	writeJSON(w, http.StatusOK, locateResponse{State: wf.State(), Selection: wf.Selection()})
}
