package locate

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"desa-api/internal/logger"
	"desa-api/internal/metrics"
	"desa-api/internal/resolver"
)

// View：下游视图
type View string

const (
	ViewMacro  View = "macro"
	ViewDetail View = "micro"
)

// Selection：当前选中的村与视图
type Selection struct {
	VillageID string `json:"village_id"`
	View      View   `json:"view"`
}

// Options：流程参数
type Options struct {
	Timeout        time.Duration // 单次传感器读取超时
	DefaultVillage string        // 定位成功前的默认选中村
}

// OptionsFromEnv：LOCATE_TIMEOUT_S（默认 10s）与 DEFAULT_VILLAGE_ID
func OptionsFromEnv() Options {
	o := Options{Timeout: 10 * time.Second, DefaultVillage: os.Getenv("DEFAULT_VILLAGE_ID")}
	if s := os.Getenv("LOCATE_TIMEOUT_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			o.Timeout = time.Duration(n) * time.Second
		}
	}
	return o
}

// 文档注释：定位流程
// 背景：状态转移集中在 transition；本类型负责驱动传感器与最近村查询，并把结果按请求代次写回快照。
// 约束：
//   - 每次 Detect/Pin 分配新的代次，只有最新代次的请求能写入状态，较早请求的迟到结果直接丢弃；
//   - 传感器读取同时最多一个（不分档位），并发 Detect 共享同一次读取；
//   - 互斥锁只保护“比对代次 + 替换快照”，不跨越传感器或网络调用。
type Workflow struct {
	sensor  Sensor
	res     resolver.Resolver
	opts    Options
	sf      singleflight.Group
	mu      sync.Mutex
	gen     uint64
	state   atomic.Pointer[State]
	sel     atomic.Pointer[Selection]
	autoHit bool
	now     func() time.Time
}

func New(sensor Sensor, res resolver.Resolver, opts Options) *Workflow {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	w := &Workflow{sensor: sensor, res: res, opts: opts, now: time.Now}
	w.state.Store(&State{Phase: PhaseIdle, At: w.now()})
	w.sel.Store(&Selection{VillageID: opts.DefaultVillage, View: ViewMacro})
	return w
}

// State：最近一次状态快照
func (w *Workflow) State() State { return *w.state.Load() }

// Selection：当前选中
func (w *Workflow) Selection() Selection { return *w.sel.Load() }

// Select：用户在列表/地图上点选村，切换到详情视图
func (w *Workflow) Select(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sel.Store(&Selection{VillageID: id, View: ViewDetail})
}

// SetView：切换视图（导航栏操作），不影响选中村
func (w *Workflow) SetView(v View) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sel := *w.sel.Load()
	sel.View = v
	w.sel.Store(&sel)
}

const sensorKey = "sensor"

type request struct {
	gen     uint64
	attempt string
	source  Source
}

// begin：分配新代次并写入起始事件
func (w *Workflow) begin(source Source, e event) (request, State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	r := request{gen: w.gen, attempt: uuid.NewString(), source: source}
	next, _ := transition(*w.state.Load(), e)
	return r, w.store(r, next)
}

// apply：仅当 r 仍是最新请求时写入；返回写入后的状态与是否写入
func (w *Workflow) apply(r request, e event) (State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := *w.state.Load()
	if r.gen != w.gen {
		logger.L().Debug("locate_superseded", "attempt", r.attempt, "gen", r.gen, "latest", w.gen)
		return cur, false
	}
	next, ok := transition(cur, e)
	if !ok {
		return cur, false
	}
	next = w.store(r, next)
	if e.kind == evResolved {
		sel := *w.sel.Load()
		sel.VillageID = e.match.ID
		if r.source == SourceSensor && !w.autoHit {
			w.autoHit = true
			sel.View = ViewDetail
		}
		w.sel.Store(&sel)
	}
	return next, true
}

func (w *Workflow) store(r request, s State) State {
	s.Gen = r.gen
	s.Attempt = r.attempt
	s.At = w.now()
	w.state.Store(&s)
	return s
}

// 文档注释：自动定位
// 背景：先以高精度读取；超时或拒绝授权时自动降级为低精度读取一次；拿到坐标后查询最近村。
// 约束：返回本次请求结束时的最新快照；若期间有更新的请求（如手动标点），返回的是那个请求写入的状态。
func (w *Workflow) Detect(ctx context.Context) State {
	if w.sensor == nil {
		r, s := w.begin(SourceSensor, event{kind: evUnsupported})
		logger.L().Info("locate_unsupported", "attempt", r.attempt)
		metrics.LocateOutcomesTotal.WithLabelValues("auto", "unsupported").Inc()
		return s
	}
	r, s := w.begin(SourceSensor, event{kind: evDetect})
	logger.L().Debug("locate_begin", "attempt", r.attempt, "gen", r.gen)
	for s.Phase == PhaseLocating {
		fix, err := w.acquire(ctx, s.Mode)
		e := event{kind: evFix, fix: fix}
		if err != nil {
			logger.L().Debug("locate_sensor_fail", "attempt", r.attempt, "mode", string(s.Mode), "err", err)
			e = event{kind: evSensorFail, err: err}
		}
		var ok bool
		if s, ok = w.apply(r, e); !ok {
			metrics.LocateOutcomesTotal.WithLabelValues("auto", "superseded").Inc()
			return s
		}
	}
	if s.Phase == PhaseError {
		metrics.LocateOutcomesTotal.WithLabelValues("auto", "acquire_failed").Inc()
		logger.L().Info("locate_failed", "attempt", r.attempt, "retried", s.Retried, "message", s.Message)
		return s
	}
	return w.resolve(ctx, r, s)
}

// 文档注释：手动标点
// 背景：绕过传感器直接进入 success，精度为 Manual；随后查询最近村，只更新选中村，不切换视图。
func (w *Workflow) Pin(ctx context.Context, lat, lng float64) (State, error) {
	if !resolver.ValidCoord(lat, lng) {
		return w.State(), resolver.ErrInvalidCoord
	}
	r, s := w.begin(SourceManual, event{kind: evPin, fix: Fix{Lat: lat, Lng: lng}})
	logger.L().Debug("locate_pin", "attempt", r.attempt, "gen", r.gen, "lat", lat, "lng", lng)
	return w.resolve(ctx, r, s), nil
}

func (w *Workflow) resolve(ctx context.Context, r request, s State) State {
	path := "auto"
	if r.source == SourceManual {
		path = "manual"
	}
	if w.res == nil {
		return s
	}
	m, err := w.res.Resolve(ctx, s.Coords.Lat, s.Coords.Lng)
	e := event{kind: evResolved, match: m}
	outcome := "resolved"
	if err != nil {
		e = event{kind: evResolveFail, err: err}
		outcome = "resolve_failed"
		logger.L().Info("locate_resolve_fail", "attempt", r.attempt, "err", err)
	}
	next, ok := w.apply(r, e)
	if !ok {
		outcome = "superseded"
	} else if err == nil {
		logger.L().Info("locate_resolved", "attempt", r.attempt, "village", m.ID, "method", string(m.Method), "km", m.DistanceKm)
	}
	metrics.LocateOutcomesTotal.WithLabelValues(path, outcome).Inc()
	return next
}

// acquire：读取传感器；到期统一映射为 ErrTimeout
// 约束：任意档位的读取共用同一键，已有读取未结束时（包括等待超时后仍在运行的读取）新的请求直接加入它，而不是另起一次。
func (w *Workflow) acquire(ctx context.Context, mode Mode) (Fix, error) {
	ch := w.sf.DoChan(sensorKey, func() (interface{}, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.Timeout)
		defer cancel()
		fix, err := w.sensor.Acquire(actx, mode == ModeHigh)
		if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = ErrTimeout
		}
		return fix, err
	})
	// 传感器不响应 ctx 时仍按超时结束本次等待
	timer := time.NewTimer(w.opts.Timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return Fix{}, ErrTimeout
	case res := <-ch:
		if res.Err != nil {
			return Fix{}, res.Err
		}
		return res.Val.(Fix), nil
	}
}
