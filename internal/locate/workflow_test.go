package locate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desa-api/internal/resolver"
)

type scriptedSensor struct {
	mu      sync.Mutex
	calls   []bool
	results map[bool]func(ctx context.Context) (Fix, error)
}

func (s *scriptedSensor) Acquire(ctx context.Context, high bool) (Fix, error) {
	s.mu.Lock()
	s.calls = append(s.calls, high)
	fn := s.results[high]
	s.mu.Unlock()
	return fn(ctx)
}

func (s *scriptedSensor) Calls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.calls...)
}

func fixed(f Fix) func(context.Context) (Fix, error) {
	return func(context.Context) (Fix, error) { return f, nil }
}

func failing(err error) func(context.Context) (Fix, error) {
	return func(context.Context) (Fix, error) { return Fix{}, err }
}

type stubResolver struct {
	mu  sync.Mutex
	fn  func(lat, lng float64) (resolver.Match, error)
	got [][2]float64
}

func (r *stubResolver) Name() string                        { return "stub" }
func (r *stubResolver) Heartbeat(ctx context.Context) error { return nil }
func (r *stubResolver) Resolve(ctx context.Context, lat, lng float64) (resolver.Match, error) {
	r.mu.Lock()
	r.got = append(r.got, [2]float64{lat, lng})
	r.mu.Unlock()
	return r.fn(lat, lng)
}

func byLat() *stubResolver {
	return &stubResolver{fn: func(lat, lng float64) (resolver.Match, error) {
		if lat < -7.5 {
			return resolver.Match{ID: "2", Name: "Dua", Method: resolver.MethodGeofence}, nil
		}
		return resolver.Match{ID: "1", Name: "Satu", DistanceKm: 1.5, Method: resolver.MethodDistance}, nil
	}}
}

var opts = Options{Timeout: time.Second, DefaultVillage: "3524010001"}

func TestHighTimeoutRetriesLowOnce(t *testing.T) {
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){
		true:  failing(ErrTimeout),
		false: fixed(Fix{Lat: -7.1234567, Lng: 112.7654321, AccuracyM: 1499.6}),
	}}
	w := New(s, byLat(), opts)
	assert.Equal(t, PhaseIdle, w.State().Phase)

	st := w.Detect(context.Background())
	assert.Equal(t, []bool{true, false}, s.Calls())
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, ModeLow, st.Mode)
	assert.True(t, st.Retried)
	assert.Equal(t, &Coords{Lat: -7.123457, Lng: 112.765432}, st.Coords)
	assert.Equal(t, &Accuracy{Meters: 1500}, st.Accuracy)
	assert.Equal(t, "Nearest: Satu (1.5km)", st.Message)
	assert.Equal(t, st, w.State())
}

func TestRetryNeverLoops(t *testing.T) {
	for _, cause := range []error{ErrTimeout, ErrPermissionDenied} {
		t.Run(cause.Error(), func(t *testing.T) {
			s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: failing(cause), false: failing(cause)}}
			w := New(s, byLat(), opts)
			st := w.Detect(context.Background())
			assert.Equal(t, []bool{true, false}, s.Calls())
			assert.Equal(t, PhaseError, st.Phase)
			assert.Equal(t, "Error: "+cause.Error(), st.Message)
			assert.Nil(t, st.Coords)
		})
	}
}

func TestNonRetryableFailure(t *testing.T) {
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: failing(ErrUnavailable)}}
	w := New(s, byLat(), opts)
	st := w.Detect(context.Background())
	assert.Equal(t, []bool{true}, s.Calls())
	assert.Equal(t, PhaseError, st.Phase)
	assert.False(t, st.Retried)
}

func TestUnsupported(t *testing.T) {
	w := New(nil, byLat(), opts)
	st := w.Detect(context.Background())
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MsgUnsupported, st.Message)

	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: failing(ErrUnsupported)}}
	st = New(s, byLat(), opts).Detect(context.Background())
	assert.Equal(t, MsgUnsupported, st.Message)
	assert.Len(t, s.Calls(), 1)
}

func TestSensorDeadlineMapsToTimeout(t *testing.T) {
	hang := func(ctx context.Context) (Fix, error) {
		<-ctx.Done()
		return Fix{}, ctx.Err()
	}
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: hang, false: hang}}
	w := New(s, byLat(), Options{Timeout: 20 * time.Millisecond})
	st := w.Detect(context.Background())
	assert.Equal(t, PhaseError, st.Phase)
	assert.True(t, st.Retried)
	assert.Equal(t, "Error: "+ErrTimeout.Error(), st.Message)
}

func TestManualPinOverwritesPriorState(t *testing.T) {
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: fixed(Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 12})}}
	w := New(s, byLat(), opts)
	first := w.Detect(context.Background())
	require.Equal(t, PhaseSuccess, first.Phase)
	require.NotNil(t, first.Match)

	st, err := w.Pin(context.Background(), -7.9, 112.2)
	require.NoError(t, err)
	want := State{
		Phase:    PhaseSuccess,
		Source:   SourceManual,
		Coords:   &Coords{Lat: -7.9, Lng: 112.2},
		Accuracy: ManualAccuracy(),
		Message:  "Nearest: Dua • Manual",
		Match:    &resolver.Match{ID: "2", Name: "Dua", Method: resolver.MethodGeofence},
		Gen:      st.Gen,
		Attempt:  st.Attempt,
		At:       st.At,
	}
	assert.Equal(t, want, st)
	assert.NotEqual(t, first.Attempt, st.Attempt)
	assert.Equal(t, "2", w.Selection().VillageID)
}

func TestPinWhileSensorInFlightWins(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: func(context.Context) (Fix, error) {
		once.Do(func() { close(started) })
		<-gate
		return Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 5}, nil
	}}}
	res := byLat()
	w := New(s, res, opts)

	done := make(chan State)
	go func() { done <- w.Detect(context.Background()) }()
	<-started

	pinned, err := w.Pin(context.Background(), -7.9, 112.2)
	require.NoError(t, err)
	close(gate)
	late := <-done

	assert.Equal(t, SourceManual, late.Source, "the stale sensor fix must not overwrite the pin")
	assert.Equal(t, pinned, w.State())
	assert.Equal(t, Selection{VillageID: "2", View: ViewMacro}, w.Selection())
	assert.Len(t, res.got, 1, "the superseded sensor fix is never resolved")
}

func TestResolverFailureKeepsCoords(t *testing.T) {
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: fixed(Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 8})}}
	res := &stubResolver{fn: func(lat, lng float64) (resolver.Match, error) { return resolver.Match{}, errors.New("connection refused") }}
	w := New(s, res, opts)

	st := w.Detect(context.Background())
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, &Coords{Lat: -7.1, Lng: 112.1}, st.Coords)
	assert.Equal(t, MsgResolveFailed, st.Message)
	assert.Equal(t, Selection{VillageID: "3524010001", View: ViewMacro}, w.Selection())

	res.fn = func(lat, lng float64) (resolver.Match, error) { return resolver.Match{}, resolver.ErrNoMatch }
	st, err := w.Pin(context.Background(), -7.2, 112.2)
	require.NoError(t, err)
	assert.Equal(t, MsgNoVillage, st.Message)
	assert.Equal(t, &Coords{Lat: -7.2, Lng: 112.2}, st.Coords)
}

func TestAutoSwitchOnlyOnFirstSuccess(t *testing.T) {
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: fixed(Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 8})}}
	w := New(s, byLat(), opts)

	_, err := w.Pin(context.Background(), -7.9, 112.2)
	require.NoError(t, err)
	assert.Equal(t, ViewMacro, w.Selection().View, "manual pin does not switch views")

	w.Detect(context.Background())
	assert.Equal(t, Selection{VillageID: "1", View: ViewDetail}, w.Selection())

	w.SetView(ViewMacro)
	w.Detect(context.Background())
	assert.Equal(t, Selection{VillageID: "1", View: ViewMacro}, w.Selection())
}

func TestConcurrentDetectsShareAcquisition(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	s := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){true: func(context.Context) (Fix, error) {
		once.Do(func() { close(started) })
		<-gate
		return Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 5}, nil
	}}}
	w := New(s, byLat(), opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); w.Detect(context.Background()) }()
	<-started
	go func() { defer wg.Done(); w.Detect(context.Background()) }()
	time.Sleep(30 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Len(t, s.Calls(), 1)
	assert.Equal(t, PhaseSuccess, w.State().Phase)
	assert.EqualValues(t, 2, w.State().Gen)
}

// overlapSensor 记录同时进行中的读取数峰值
type overlapSensor struct {
	next   Sensor
	mu     sync.Mutex
	active int
	peak   int
}

func (o *overlapSensor) Acquire(ctx context.Context, high bool) (Fix, error) {
	o.mu.Lock()
	o.active++
	if o.active > o.peak {
		o.peak = o.active
	}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.active--
		o.mu.Unlock()
	}()
	return o.next.Acquire(ctx, high)
}

func (o *overlapSensor) Peak() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.peak
}

func TestOneAcquisitionAcrossModes(t *testing.T) {
	gate := make(chan struct{})
	lowStarted := make(chan struct{})
	var once sync.Once
	inner := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){
		true: failing(ErrTimeout),
		false: func(context.Context) (Fix, error) {
			once.Do(func() { close(lowStarted) })
			<-gate
			return Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 900}, nil
		},
	}}
	s := &overlapSensor{next: inner}
	w := New(s, byLat(), opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); w.Detect(context.Background()) }()
	<-lowStarted
	// 低精度重试进行中时再次发起自动定位（重试按钮）
	go func() { defer wg.Done(); w.Detect(context.Background()) }()
	time.Sleep(30 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, s.Peak())
	assert.Equal(t, []bool{true, false}, inner.Calls(), "the second detect joins the running low-accuracy read")
	assert.Equal(t, PhaseSuccess, w.State().Phase)
	assert.EqualValues(t, 2, w.State().Gen)
}

func TestTimedOutReadIsJoinedNotDuplicated(t *testing.T) {
	gate := make(chan struct{})
	inner := &scriptedSensor{results: map[bool]func(context.Context) (Fix, error){
		// 忽略 ctx 的传感器：超时计时器先到期，读取仍在运行
		true:  func(context.Context) (Fix, error) { <-gate; return Fix{}, ErrUnavailable },
		false: fixed(Fix{Lat: -7.1, Lng: 112.1, AccuracyM: 900}),
	}}
	s := &overlapSensor{next: inner}
	w := New(s, byLat(), Options{Timeout: 20 * time.Millisecond})

	st := w.Detect(context.Background())
	close(gate)

	assert.Equal(t, PhaseError, st.Phase)
	assert.True(t, st.Retried)
	assert.Equal(t, 1, s.Peak())
	assert.Equal(t, []bool{true}, inner.Calls(), "the low-accuracy retry waits on the running read instead of starting another")
}

func TestSelectSwitchesToDetail(t *testing.T) {
	w := New(nil, byLat(), opts)
	assert.Equal(t, Selection{VillageID: "3524010001", View: ViewMacro}, w.Selection())
	w.Select("3524010002")
	assert.Equal(t, Selection{VillageID: "3524010002", View: ViewDetail}, w.Selection())
	assert.Equal(t, PhaseIdle, w.State().Phase)
}

func TestPinRejectsInvalidCoords(t *testing.T) {
	w := New(nil, byLat(), opts)
	_, err := w.Pin(context.Background(), 100, 0)
	assert.ErrorIs(t, err, resolver.ErrInvalidCoord)
	assert.Equal(t, PhaseIdle, w.State().Phase)
}

func TestTransitionRejectsOutOfOrderEvents(t *testing.T) {
	idle := State{Phase: PhaseIdle}
	_, ok := transition(idle, event{kind: evFix})
	assert.False(t, ok)
	_, ok = transition(idle, event{kind: evSensorFail, err: ErrTimeout})
	assert.False(t, ok)
	_, ok = transition(idle, event{kind: evResolved})
	assert.False(t, ok)

	low := State{Phase: PhaseLocating, Mode: ModeLow, Retried: true}
	next, ok := transition(low, event{kind: evSensorFail, err: ErrTimeout})
	require.True(t, ok)
	assert.Equal(t, PhaseError, next.Phase)

	errState := State{Phase: PhaseError}
	next, ok = transition(errState, event{kind: evPin, fix: Fix{Lat: 1, Lng: 2}})
	require.True(t, ok)
	assert.Equal(t, PhaseSuccess, next.Phase)
}

func TestAccuracyJSON(t *testing.T) {
	b, err := json.Marshal(State{Phase: PhaseSuccess, Accuracy: ManualAccuracy()})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"accuracy":"Manual"`)
	assert.Contains(t, string(b), `"status":"success"`)

	var a Accuracy
	require.NoError(t, json.Unmarshal([]byte(`42`), &a))
	assert.Equal(t, Accuracy{Meters: 42}, a)
	require.NoError(t, json.Unmarshal([]byte(`"Manual"`), &a))
	assert.True(t, a.Manual)
	assert.Error(t, json.Unmarshal([]byte(`"Auto"`), &a))
}

func TestSessionsEvictOldest(t *testing.T) {
	created := 0
	mk := func() *Workflow { created++; return New(nil, nil, opts) }
	ss := NewSessions(2)
	a := ss.Get("a", mk)
	time.Sleep(time.Millisecond)
	ss.Get("b", mk)
	time.Sleep(time.Millisecond)
	assert.Same(t, a, ss.Get("a", mk))
	ss.Get("c", mk)
	assert.Equal(t, 2, ss.Len())
	assert.Equal(t, 3, created)
	ss.Get("b", mk)
	assert.Equal(t, 4, created, "b was the least recently used and got evicted")
}
