// 包 locate：定位流程状态机（设备传感器或手动标点 → 最近村查询 → 选中村）
package locate

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"desa-api/internal/resolver"
)

// Phase：定位阶段
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLocating Phase = "locating"
	PhaseSuccess  Phase = "success"
	PhaseError    Phase = "error"
)

// Mode：传感器精度档位
type Mode string

const (
	ModeHigh Mode = "high"
	ModeLow  Mode = "low"
)

// Source：坐标来源
type Source string

const (
	SourceSensor Source = "sensor"
	SourceManual Source = "manual"
)

// 面向用户的状态文案
const (
	MsgLocating      = "Locating..."
	MsgRetrying      = "Retrying with low accuracy..."
	MsgFound         = "Location found"
	MsgPinned        = "Pinned on map"
	MsgUnsupported   = "Geolocation not supported"
	MsgResolveFailed = "Failed to fetch nearest village"
	MsgNoVillage     = "No village found nearby"
	manualSuffix     = " • Manual"
)

// Coords：坐标（保留 6 位小数）
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// 文档注释：定位精度
// 约束：手动标点不携带数值，序列化为字符串 "Manual"；传感器精度为取整后的米数。
type Accuracy struct {
	Meters int
	Manual bool
}

func ManualAccuracy() *Accuracy { return &Accuracy{Manual: true} }

func (a Accuracy) String() string {
	if a.Manual {
		return "Manual"
	}
	return strconv.Itoa(a.Meters) + "m"
}

func (a Accuracy) MarshalJSON() ([]byte, error) {
	if a.Manual {
		return []byte(`"Manual"`), nil
	}
	return json.Marshal(a.Meters)
}

func (a *Accuracy) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		if s != "Manual" {
			return errors.New("accuracy: unknown sentinel " + strconv.Quote(s))
		}
		*a = Accuracy{Manual: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Accuracy{Meters: n}
	return nil
}

// 文档注释：定位状态快照
// 背景：流程独占写入，其他组件只读最近一次快照；每次更新整体替换，不做局部修改。
// 约束：Retried 记录本次请求是否已降级重试过，保证低精度重试最多一次。
type State struct {
	Phase    Phase           `json:"status"`
	Mode     Mode            `json:"mode,omitempty"`
	Source   Source          `json:"source,omitempty"`
	Coords   *Coords         `json:"coords"`
	Accuracy *Accuracy       `json:"accuracy"`
	Message  string          `json:"message"`
	Match    *resolver.Match `json:"match,omitempty"`
	Retried  bool            `json:"retried"`
	Gen      uint64          `json:"gen"`
	Attempt  string          `json:"attempt,omitempty"`
	At       time.Time       `json:"at"`
}

// Fix：一次成功的传感器读数
type Fix struct {
	Lat       float64
	Lng       float64
	AccuracyM float64
}

type eventKind int

const (
	evDetect eventKind = iota
	evUnsupported
	evFix
	evSensorFail
	evPin
	evResolved
	evResolveFail
)

type event struct {
	kind  eventKind
	fix   Fix
	err   error
	match resolver.Match
}

// 文档注释：状态转移函数（纯函数）
// 背景：自动定位为 idle → locating(high) → success | error；high 因超时或拒绝授权失败时降级为 locating(low) 一次；手动标点从任意状态直达 success。
// 约束：不合法的事件返回 ok=false 且状态不变；success 状态下查询失败不回退坐标，只替换文案。
func transition(s State, e event) (State, bool) {
	switch e.kind {
	case evDetect:
		return State{Phase: PhaseLocating, Mode: ModeHigh, Source: SourceSensor, Message: MsgLocating}, true
	case evUnsupported:
		return State{Phase: PhaseError, Source: SourceSensor, Message: MsgUnsupported}, true
	case evFix:
		if s.Phase != PhaseLocating {
			return s, false
		}
		return State{
			Phase:    PhaseSuccess,
			Mode:     s.Mode,
			Source:   SourceSensor,
			Coords:   &Coords{Lat: round6(e.fix.Lat), Lng: round6(e.fix.Lng)},
			Accuracy: &Accuracy{Meters: roundInt(e.fix.AccuracyM)},
			Message:  MsgFound,
			Retried:  s.Retried,
		}, true
	case evSensorFail:
		if s.Phase != PhaseLocating {
			return s, false
		}
		if s.Mode == ModeHigh && !s.Retried && retryable(e.err) {
			return State{Phase: PhaseLocating, Mode: ModeLow, Source: SourceSensor, Message: MsgRetrying, Retried: true}, true
		}
		msg := "Error: " + e.err.Error()
		if errors.Is(e.err, ErrUnsupported) {
			msg = MsgUnsupported
		}
		return State{Phase: PhaseError, Mode: s.Mode, Source: SourceSensor, Message: msg, Retried: s.Retried}, true
	case evPin:
		return State{
			Phase:    PhaseSuccess,
			Source:   SourceManual,
			Coords:   &Coords{Lat: round6(e.fix.Lat), Lng: round6(e.fix.Lng)},
			Accuracy: ManualAccuracy(),
			Message:  MsgPinned,
		}, true
	case evResolved:
		if s.Phase != PhaseSuccess {
			return s, false
		}
		m := e.match
		s.Match = &m
		s.Message = "Nearest: " + m.Label()
		if s.Source == SourceManual {
			s.Message += manualSuffix
		}
		return s, true
	case evResolveFail:
		if s.Phase != PhaseSuccess {
			return s, false
		}
		s.Match = nil
		s.Message = MsgResolveFailed
		if errors.Is(e.err, resolver.ErrNoMatch) {
			s.Message = MsgNoVillage
		}
		return s, true
	}
	return s, false
}

func retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrPermissionDenied)
}

func round6(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 6, 64), 64)
	return f
}

func roundInt(v float64) int {
	if v < 0 {
		return 0
	}
	return int(v + 0.5)
}
