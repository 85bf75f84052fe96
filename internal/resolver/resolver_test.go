package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desa-api/internal/revgeo"
)

const square = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"iddesa":"3524010001","nmdesa":"Sidomulyo"},"geometry":{"type":"Polygon","coordinates":[[[112.0,-7.1],[112.1,-7.1],[112.1,-7.0],[112.0,-7.0],[112.0,-7.1]]]}}]}`

func localIndex(t *testing.T) *revgeo.Index {
	t.Helper()
	set, err := revgeo.ParseBoundaries([]byte(square))
	require.NoError(t, err)
	return revgeo.NewIndex(&revgeo.Snapshot{
		Boundaries: set,
		Centroids:  []revgeo.Centroid{{ID: "3524010001", Name: "Sidomulyo", Lat: -7.05, Lon: 112.05}},
	}, revgeo.DefaultOptions())
}

func TestLocalMethods(t *testing.T) {
	l := NewLocal(localIndex(t))
	ctx := context.Background()

	m, err := l.Resolve(ctx, -7.05, 112.05)
	require.NoError(t, err)
	assert.Equal(t, Match{ID: "3524010001", Name: "Sidomulyo", Method: MethodGeofence}, m)
	assert.False(t, m.ShowDistance())
	assert.Equal(t, "Sidomulyo", m.Label())

	m, err = l.Resolve(ctx, -7.05, 112.102)
	require.NoError(t, err)
	assert.Equal(t, MethodDistance, m.Method)
	assert.InDelta(t, 0.223, m.DistanceKm, 0.001)

	m, err = l.Resolve(ctx, -7.05, 112.3)
	require.NoError(t, err)
	assert.Equal(t, MethodDistance, m.Method)
	assert.True(t, m.ShowDistance())

	_, err = l.Resolve(ctx, 10, 100)
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = l.Resolve(ctx, 91, 0)
	assert.ErrorIs(t, err, ErrInvalidCoord)
}

func TestLocalEmpty(t *testing.T) {
	l := NewLocal(nil)
	_, err := l.Resolve(context.Background(), -7.05, 112.05)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Error(t, l.Heartbeat(context.Background()))

	l.Swap(localIndex(t))
	assert.NoError(t, l.Heartbeat(context.Background()))
}

func TestMatchLabel(t *testing.T) {
	m := Match{Name: "Sukorejo", DistanceKm: 1.25, Method: MethodDistance}
	assert.Equal(t, "Sukorejo (1.25km)", m.Label())
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/nearest-village":
			switch r.URL.Query().Get("lat") {
			case "-7.05":
				assert.Equal(t, "112.05", r.URL.Query().Get("long"))
				_, _ = w.Write([]byte(`{"id":"3524010001","name":"Sidomulyo","distance_km":0,"method":"geofence"}`))
			case "-7.2":
				_, _ = w.Write([]byte(`{"id":3524010002,"name":"Sukorejo","distance_km":0.4,"method":"geofence_fuzzy"}`))
			case "0":
				_, _ = w.Write([]byte(`{}`))
			default:
				http.NotFound(w, r)
			}
		}
	}))
	defer srv.Close()
	h := NewHTTP("remote", srv.URL+"/", time.Second)
	ctx := context.Background()

	require.NoError(t, h.Heartbeat(ctx))

	m, err := h.Resolve(ctx, -7.05, 112.05)
	require.NoError(t, err)
	assert.Equal(t, MethodGeofence, m.Method)

	m, err = h.Resolve(ctx, -7.2, 112.2)
	require.NoError(t, err)
	assert.Equal(t, Match{ID: "3524010002", Name: "Sukorejo", DistanceKm: 0.4, Method: MethodDistance}, m)

	_, err = h.Resolve(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = h.Resolve(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrNoMatch)
}

type fake struct {
	name  string
	match Match
	err   error
	hb    error
	calls int
}

func (f *fake) Name() string                        { return f.name }
func (f *fake) Heartbeat(ctx context.Context) error { return f.hb }
func (f *fake) Resolve(ctx context.Context, lat, lng float64) (Match, error) {
	f.calls++
	return f.match, f.err
}

func TestChainOrderAndFallback(t *testing.T) {
	a := &fake{name: "a", err: ErrNoMatch}
	b := &fake{name: "b", match: Match{ID: "2", Method: MethodDistance, DistanceKm: 3}}
	c := NewChain(a, b)

	m, err := c.Resolve(context.Background(), -7, 112)
	require.NoError(t, err)
	assert.Equal(t, "2", m.ID)
	assert.Equal(t, 1, a.calls)

	a.err, a.match = nil, Match{ID: "1", Method: MethodGeofence}
	m, err = c.Resolve(context.Background(), -7, 112)
	require.NoError(t, err)
	assert.Equal(t, "1", m.ID)
	assert.Equal(t, 1, b.calls, "later resolvers are not consulted after a hit")
}

func TestChainErrors(t *testing.T) {
	boom := errors.New("unreachable")
	c := NewChain(&fake{name: "a", err: boom}, &fake{name: "b", err: ErrNoMatch})
	_, err := c.Resolve(context.Background(), -7, 112)
	assert.ErrorIs(t, err, boom)

	c = NewChain(&fake{name: "a", err: ErrNoMatch})
	_, err = c.Resolve(context.Background(), -7, 112)
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = c.Resolve(context.Background(), -100, 112)
	assert.ErrorIs(t, err, ErrInvalidCoord)
}

func TestChainHeartbeatEvicts(t *testing.T) {
	a := &fake{name: "a", hb: errors.New("down"), match: Match{ID: "1"}}
	b := &fake{name: "b", match: Match{ID: "2"}}
	c := NewChain(a, b)
	require.NoError(t, c.Heartbeat(context.Background()))
	require.Len(t, c.Healthy(), 1)

	m, err := c.Resolve(context.Background(), -7, 112)
	require.NoError(t, err)
	assert.Equal(t, "2", m.ID)
	assert.Equal(t, 0, a.calls)

	b.hb = errors.New("down")
	assert.Error(t, c.Heartbeat(context.Background()))
	_, err = c.Resolve(context.Background(), -7, 112)
	assert.Error(t, err)

	a.hb, b.hb = nil, nil
	require.NoError(t, c.Heartbeat(context.Background()))
	assert.Len(t, c.Healthy(), 2)
}

func TestCachedWithoutRedisPassesThrough(t *testing.T) {
	f := &fake{name: "a", match: Match{ID: "1", Method: MethodGeofence}}
	c := NewCached(f, nil, 0)
	assert.Equal(t, "a+redis", c.Name())
	for i := 0; i < 2; i++ {
		m, err := c.Resolve(context.Background(), -7, 112)
		require.NoError(t, err)
		assert.Equal(t, "1", m.ID)
	}
	assert.Equal(t, 2, f.calls)
}

// 需要真实 Redis：设置 REDIS_TEST_ADDR 后运行
func TestCachedRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	defer rc.Close()
	ctx := context.Background()
	require.NoError(t, rc.Del(ctx, cacheKey(-7.1234, 112.5678)).Err())

	f := &fake{name: "a", match: Match{ID: "1", Name: "Satu", DistanceKm: 2.5, Method: MethodDistance}}
	c := NewCached(f, rc, time.Minute)
	first, err := c.Resolve(ctx, -7.1234, 112.5678)
	require.NoError(t, err)
	second, err := c.Resolve(ctx, -7.1234, 112.5678)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls)

	f.match, f.err = Match{}, ErrNoMatch
	_, err = c.Resolve(ctx, 10, 100)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "nearest:-7.0500:112.0500", cacheKey(-7.05, 112.05))
}
