package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desa-api/internal/revgeo"
	"desa-api/internal/village"
)

const squareGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"iddesa":"1","nmdesa":"Satu"},"geometry":{"type":"Polygon","coordinates":[[[112.0,-7.1],[112.1,-7.1],[112.1,-7.0],[112.0,-7.0],[112.0,-7.1]]]}}]}`

type fakeSource struct {
	recordCalls   atomic.Int32
	boundaryCalls atomic.Int32
	boundaryErr   error
	recordErr     error
	gate          chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchRecords(ctx context.Context) ([]village.Record, error) {
	f.recordCalls.Add(1)
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return []village.Record{{ID: "1", Name: "Satu", Latitude: -7.05, Longitude: 112.05}, {ID: "2", Name: "Dua"}}, nil
}

func (f *fakeSource) FetchBoundaries(ctx context.Context) ([]byte, error) {
	f.boundaryCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.boundaryErr != nil {
		return nil, f.boundaryErr
	}
	return []byte(squareGeoJSON), nil
}

func TestTwoMountsFetchBoundariesOnce(t *testing.T) {
	src := &fakeSource{}
	s := New(src)
	ctx := context.Background()

	v1, err := s.Activate(ctx)
	require.NoError(t, err)
	assert.Len(t, v1.Records, 2)

	select {
	case <-s.Boundaries().Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("boundaries never became ready")
	}

	v2, err := s.Activate(ctx)
	require.NoError(t, err)
	require.NotNil(t, v2.Boundaries)
	assert.Equal(t, 1, v2.Boundaries.Len())

	assert.EqualValues(t, 1, src.boundaryCalls.Load())
	assert.EqualValues(t, 1, s.Boundaries().Fetches())
	assert.EqualValues(t, 2, src.recordCalls.Load(), "records are refetched per activation")
}

func TestActivateDoesNotWaitForBoundaries(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	defer close(src.gate)
	s := New(src)
	v, err := s.Activate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, v.Boundaries)
	assert.Len(t, v.Records, 2)
}

func TestBoundaryCacheCoalescesConcurrentFetches(t *testing.T) {
	gate := make(chan struct{})
	var calls atomic.Int32
	c := NewBoundaryCache(func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-gate
		return []byte(squareGeoJSON), nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, b.Len())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestBoundaryFailureIsNotCached(t *testing.T) {
	src := &fakeSource{boundaryErr: errors.New("boom")}
	c := NewBoundaryCache(src.FetchBoundaries)
	_, err := c.Get(context.Background())
	require.Error(t, err)
	_, ok := c.Peek()
	assert.False(t, ok)

	src.boundaryErr = nil
	b, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	assert.EqualValues(t, 2, src.boundaryCalls.Load())
}

func TestPrimeAndLookup(t *testing.T) {
	s := New(&fakeSource{})
	v, err := s.Prime(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.Boundaries)

	r, err := v.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "Dua", r.Name)
	_, err = v.Get("9")
	assert.ErrorIs(t, err, ErrNotFound)

	cs := v.Centroids()
	require.Len(t, cs, 1, "records without coordinates are skipped")
	assert.Equal(t, "1", cs[0].ID)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	arr := filepath.Join(dir, "arr.json")
	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(arr, []byte(`[{"id":"1","name":"Satu","disaster":{"flood_exist":"Ada"}}]`), 0o644))
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"data":[{"id":"2"},{"id":"3"}]}`), 0o644))

	recs, err := FileSource{RecordsPath: arr}.FetchRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ada", recs[0].Disaster.FloodExist)

	recs, err = FileSource{RecordsPath: wrapped}.FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = FileSource{BoundaryPath: filepath.Join(dir, "missing.geojson")}.FetchBoundaries(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildIndexAfterFailedPrime(t *testing.T) {
	src := &fakeSource{recordErr: errors.New("db down")}
	s := New(src)
	_, err := s.Prime(context.Background())
	require.Error(t, err)
	select {
	case <-s.Boundaries().Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("boundaries load even when records fail")
	}

	_, err = s.BuildIndex(context.Background(), revgeo.DefaultOptions(), nil)
	require.Error(t, err)

	src.recordErr = nil
	idx, err := s.BuildIndex(context.Background(), revgeo.DefaultOptions(), &View{})
	require.NoError(t, err)
	h, ok := idx.Query(-7.05, 112.3)
	require.True(t, ok, "centroid fallback needs the freshly fetched records")
	assert.Equal(t, "1", h.ID)
	assert.Equal(t, revgeo.StageCentroid, h.Stage)
	h, ok = idx.Query(-7.05, 112.05)
	require.True(t, ok)
	assert.Equal(t, revgeo.StageGeofence, h.Stage)
}

func TestBuildIndexFallsBackToPrimedView(t *testing.T) {
	src := &fakeSource{}
	s := New(src)
	primed, err := s.Prime(context.Background())
	require.NoError(t, err)

	src.recordErr = errors.New("db down")
	idx, err := s.BuildIndex(context.Background(), revgeo.DefaultOptions(), primed)
	require.NoError(t, err)
	h, ok := idx.Query(-7.05, 112.3)
	require.True(t, ok)
	assert.Equal(t, "1", h.ID)
}
