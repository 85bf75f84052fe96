package revgeo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoVillages = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"iddesa": "3524010001", "nmdesa": "Sidomulyo"},
     "geometry": {"type": "Polygon", "coordinates": [[[112.0,-7.1],[112.1,-7.1],[112.1,-7.0],[112.0,-7.0],[112.0,-7.1]]]}},
    {"type": "Feature", "properties": {"iddesa": 3524010002, "nmdesa": "Sukorejo"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[112.1,-7.1],[112.2,-7.1],[112.2,-7.0],[112.1,-7.0],[112.1,-7.1]]]]}},
    {"type": "Feature", "properties": {"nmdesa": "Tanpa ID"},
     "geometry": {"type": "Polygon", "coordinates": [[[113.0,-7.1],[113.1,-7.1],[113.1,-7.0],[113.0,-7.1]]]}}
  ]
}`

func testIndex(t *testing.T) *Index {
	t.Helper()
	set, err := ParseBoundaries([]byte(twoVillages))
	require.NoError(t, err)
	snap := &Snapshot{
		Boundaries: set,
		Centroids: []Centroid{
			{ID: "3524010001", Name: "Sidomulyo", Lat: -7.05, Lon: 112.05},
			{ID: "3524010002", Name: "Sukorejo", Lat: -7.05, Lon: 112.15},
			{ID: "missing", Name: "Tanpa Koordinat"},
		},
	}
	return NewIndex(snap, DefaultOptions())
}

func TestParseBoundaries(t *testing.T) {
	set, err := ParseBoundaries([]byte(twoVillages))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	b, ok := set.Lookup("3524010002")
	require.True(t, ok)
	assert.Equal(t, "Sukorejo", b.Name)
	assert.Equal(t, [4]float64{112.1, -7.1, 112.2, -7.0}, b.Polys[0].BBox)
	_, ok = set.Lookup("nope")
	assert.False(t, ok)

	_, err = ParseBoundaries([]byte("{not json"))
	assert.Error(t, err)
}

func TestIndexStages(t *testing.T) {
	x := testIndex(t)

	h, ok := x.Query(-7.05, 112.05)
	require.True(t, ok)
	assert.Equal(t, Hit{ID: "3524010001", Name: "Sidomulyo", Stage: StageGeofence}, h)

	h, ok = x.Query(-7.05, 112.15)
	require.True(t, ok)
	assert.Equal(t, StageGeofence, h.Stage)
	assert.Equal(t, "3524010002", h.ID)

	h, ok = x.Query(-7.05, 112.203)
	require.True(t, ok)
	assert.Equal(t, StageFuzzy, h.Stage)
	assert.Equal(t, "3524010002", h.ID)
	assert.InDelta(t, 0.334, h.DistanceKm, 0.001)

	h, ok = x.Query(-7.05, 112.5)
	require.True(t, ok)
	assert.Equal(t, StageCentroid, h.Stage)
	assert.Equal(t, "3524010002", h.ID)
	assert.InDelta(t, 38.6, h.DistanceKm, 0.5)

	_, ok = x.Query(10, 100)
	assert.False(t, ok)
}

func TestIndexCachesHits(t *testing.T) {
	x := testIndex(t)
	_, ok := x.Query(-7.05, 112.05)
	require.True(t, ok)
	assert.Equal(t, 1, x.cache.Len())
	_, _ = x.Query(10, 100)
	assert.Equal(t, 1, x.cache.Len(), "misses are not cached")
}

func TestIndexEmptySnapshot(t *testing.T) {
	x := NewIndex(nil, DefaultOptions())
	_, ok := x.Query(-7.05, 112.05)
	assert.False(t, ok)
}

func TestPointInPolyHole(t *testing.T) {
	outer := []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	hole := []Point{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}}
	p := Polygon{Rings: [][]Point{outer, hole}}
	assert.True(t, pointInPoly(Point{Lat: 2, Lon: 2}, p))
	assert.False(t, pointInPoly(Point{Lat: 5, Lon: 5}, p))
	assert.False(t, pointInPoly(Point{Lat: 11, Lon: 5}, p))
}

func TestEncodeGeohash(t *testing.T) {
	assert.Equal(t, "u4pruyd", encodeGeohash(57.64911, 10.40744, 7))
	assert.Len(t, encodeGeohash(-7.05, 112.05, cachePrecision), cachePrecision)
}

func TestNearestKD(t *testing.T) {
	cs := []Centroid{{ID: "a", Lat: -7.0, Lon: 112.0}, {ID: "b", Lat: -7.2, Lon: 112.4}, {ID: "c", Lat: -6.9, Lon: 112.3}, {ID: "d", Lat: -7.1, Lon: 111.9}}
	tree := buildTree(cs)
	c, _, ok := nearest(tree, Point{Lat: -6.91, Lon: 112.29})
	require.True(t, ok)
	assert.Equal(t, "c", c.ID)
	_, _, ok = nearest(nil, Point{})
	assert.False(t, ok)
}
