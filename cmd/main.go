// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"desa-api/internal/api"
	"desa-api/internal/ingest"
	"desa-api/internal/locate"
	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/middleware"
	"desa-api/internal/migrate"
	"desa-api/internal/resolver"
	"desa-api/internal/revgeo"
	"desa-api/internal/store"
	"desa-api/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)
	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	l.Debug("config_ui_dir", "dir", ui)

	src, db, err := openSource(ctx)
	if err != nil {
		l.Error("record_source_error", "err", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	l.Info("record_source_ready", "source", src.Name())

	st := store.New(src)
	pctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	view, primeErr := st.Prime(pctx)
	cancel()
	if primeErr != nil {
		// 背景：记录源暂不可用时仍然启动；首个请求会重新拉取
		l.Error("prime_error", "err", primeErr)
		view = &store.View{}
	}
	l.Info("prime_ok", "records", len(view.Records), "boundaries", view.Boundaries != nil)

	// 文档注释：反查索引
	// 背景：启动时以已有村界与中心点建索引；村界就绪或记录恢复后用最新记录重建并原子替换。
	// 约束：重建时记录拉取失败则沿用启动时的中心点。
	idxOpts := revgeo.OptionsFromEnv()
	local := resolver.NewLocal(revgeo.NewIndex(&revgeo.Snapshot{Boundaries: view.Boundaries, Centroids: view.Centroids()}, idxOpts))
	rebuild := func(ctx context.Context, fallback *store.View) error {
		idx, err := st.BuildIndex(ctx, idxOpts, fallback)
		if err != nil {
			return err
		}
		local.Swap(idx)
		l.Info("revgeo_index_swapped", "boundaries", idx.Snapshot().Boundaries.Len(), "centroids", len(idx.Snapshot().Centroids))
		return nil
	}
	if view.Boundaries == nil {
		go func() {
			select {
			case <-ctx.Done():
				return
			case <-st.Boundaries().Ready():
			}
			_ = rebuild(ctx, view)
		}()
	}
	if primeErr != nil {
		// 记录源恢复前每 30s 重试一次；成功后同时补上中心点兜底
		go func() {
			t := time.NewTicker(30 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
				if err := rebuild(ctx, nil); err != nil {
					l.Debug("index_rebuild_retry", "err", err)
					continue
				}
				return
			}
		}()
	}

	// 每周用最新记录重建索引，村界沿用进程内缓存
	ingest.StartWeekly(ctx, "revgeo_index", func(ctx context.Context) error { return rebuild(ctx, nil) })

	// 文档注释：查询链初始化
	// 背景：本地索引优先；配置 RESOLVER_ENDPOINT 时注册远端服务兜底；Redis 可用时包一层结果缓存。
	chain := resolver.NewChain(local)
	if ep := os.Getenv("RESOLVER_ENDPOINT"); ep != "" {
		name := os.Getenv("RESOLVER_NAME")
		if name == "" {
			name = "remote"
		}
		chain.Register(resolver.NewHTTP(name, ep, 3*time.Second))
	}
	chain.Start(ctx)
	rc := utils.OpenRedisFromEnv(ctx)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		l.Info("redis_ping_ok")
	}
	ttl := time.Hour
	if s := os.Getenv("REVERSE_GEO_CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	res := resolver.NewCached(chain, rc, ttl)

	// 定位传感器：GeoIP 库可选，缺失时定位流程直接进入 unsupported
	var geo *locate.GeoIPSensor
	if p := os.Getenv("GEOIP_DB_PATH"); p != "" {
		if g, err := locate.OpenGeoIP(p); err == nil {
			geo = g
			defer g.Close()
			l.Info("geoip_ready", "path", p)
		} else {
			l.Error("geoip_open_error", "path", p, "err", err)
		}
	}
	maxSessions, _ := strconv.Atoi(os.Getenv("LOCATE_MAX_SESSIONS"))
	locOpts := locate.OptionsFromEnv()

	mux := http.NewServeMux()
	// 文档注释：构建路由（携带记录存储、查询链与定位会话）
	apiMux := api.BuildRoutes(api.Deps{
		Store:    st,
		Resolver: res,
		Sessions: locate.NewSessions(maxSessions),
		NewWorkflow: func(ip string) *locate.Workflow {
			var s locate.Sensor
			if geo != nil {
				s = geo.ForIP(ip)
			}
			return locate.New(s, res, locOpts)
		},
	})
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	fs := http.FileServer(http.Dir(ui))
	mux.Handle("/", fs)

	// NOTE: 向前端暴露 API 基础路径，避免硬编码；生产环境由后端统一提供
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
		_, _ = w.Write([]byte("window.__DATA_SOURCE__='" + src.Name() + "'\n"))
		_, _ = w.Write([]byte("window.__DEFAULT_VILLAGE__='" + locOpts.DefaultVillage + "'"))
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}

// 文档注释：按 RECORD_SOURCE 选择记录源
// 背景：postgres 为默认（启动时确保表结构）；file 读取本地导出；http 对接现有数据服务。
// 约束：返回的 db 仅在 postgres 模式下非空，由调用方关闭。
func openSource(ctx context.Context) (store.RecordSource, *sqlx.DB, error) {
	switch os.Getenv("RECORD_SOURCE") {
	case "file":
		dir := os.Getenv("DATA_DIR")
		if dir == "" {
			dir = "data"
		}
		bp := os.Getenv("BOUNDARY_PATH")
		if bp == "" {
			bp = filepath.Join(dir, "boundaries.geojson")
		}
		return store.FileSource{RecordsPath: filepath.Join(dir, "villages.json"), BoundaryPath: bp}, nil, nil
	case "http":
		u := os.Getenv("RECORD_SOURCE_URL")
		if u == "" {
			return nil, nil, errors.New("RECORD_SOURCE_URL is required for http source")
		}
		return store.NewHTTPSource(u, 30*time.Second), nil, nil
	default:
		db, err := utils.OpenPostgresFromEnv(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.L().Info("db_open_ok")
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store.NewPostgresSource(db), db, nil
	}
}
