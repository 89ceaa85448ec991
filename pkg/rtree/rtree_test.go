package rtree

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-cluster/pkg/geomath"
	"github.com/kass/go-geo-cluster/pkg/models"
)

func TestNewPointIndex(t *testing.T) {
	index := NewPointIndex(nil, 70)
	assert.NotNil(t, index)
	assert.Equal(t, 0, index.Len())
	assert.Equal(t, 70.0, index.Radius())
}

func TestWithin(t *testing.T) {
	// Points around San Francisco
	sf := models.Location{Lat: 37.7749, Lon: -122.4194}
	points := []models.Location{
		sf,
		{Lat: 37.8044, Lon: -122.2712}, // Oakland, ~13km
		{Lat: 37.3382, Lon: -121.8863}, // San Jose, ~68km
		{Lat: 38.5816, Lon: -121.4944}, // Sacramento, ~120km
		{Lat: 34.0522, Lon: -118.2437}, // Los Angeles, ~560km
	}

	testCases := []struct {
		name     string
		radius   float64 // meters
		expected int
	}{
		{"10km radius", 10_000, 1},
		{"20km radius", 20_000, 2},
		{"80km radius", 80_000, 3},
		{"150km radius", 150_000, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			index := NewPointIndex(points, tc.radius)
			results := index.Within(sf)
			assert.Len(t, results, tc.expected)

			for _, idx := range results {
				dist := geomath.Haversine(sf, index.Point(idx))
				assert.LessOrEqual(t, dist, tc.radius)
			}
		})
	}
}

func TestWithinReturnsArenaIndices(t *testing.T) {
	points := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0005, Lon: -75.0005}, // ~70m away
		{Lat: 41.0, Lon: -75.0},       // ~110km away
	}
	index := NewPointIndex(points, 200)

	results := index.Within(points[0])
	require.Len(t, results, 2)

	found := map[uint32]bool{}
	for _, idx := range results {
		found[idx] = true
	}
	assert.True(t, found[0])
	assert.True(t, found[1])
	assert.False(t, found[2])
}

func TestContains(t *testing.T) {
	points := []models.Location{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 51.5074, Lon: -0.1278},
	}
	index := NewPointIndex(points, 70)

	idx, ok := index.Contains(models.Location{Lat: 40.7128, Lon: -74.0060})
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)

	// Same point within rounding precision
	_, ok = index.Contains(models.Location{Lat: 40.71280004, Lon: -74.00600004})
	assert.True(t, ok)

	_, ok = index.Contains(models.Location{Lat: 40.7129, Lon: -74.0060})
	assert.False(t, ok)
}

func TestQueryFromNonIndexedCenter(t *testing.T) {
	// Queries are not restricted to indexed points: a candidate center
	// between two points must see both.
	a := models.Location{Lat: 40.0, Lon: -75.0}
	b := models.Location{Lat: 40.0009, Lon: -75.0} // ~100m north
	mid := models.Location{Lat: 40.00045, Lon: -75.0}

	index := NewPointIndex([]models.Location{a, b}, 70)
	results := index.Within(mid)
	assert.Len(t, results, 2)
}

func TestWithinLargeSet(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	points := make([]models.Location, 0, 2000)
	for i := 0; i < 2000; i++ {
		points = append(points, models.Location{
			Lat: 40.0 + r.Float64()*0.1,
			Lon: -75.0 + r.Float64()*0.1,
		})
	}
	const radius = 500.0
	index := NewPointIndex(points, radius)
	require.Equal(t, 2000, index.Len())

	// Cross-check a few queries against brute force
	for i := 0; i < 10; i++ {
		center := points[r.Intn(len(points))]
		want := 0
		for _, p := range points {
			if geomath.Haversine(center, p) <= radius {
				want++
			}
		}
		got := index.Within(center)
		assert.Len(t, got, want, fmt.Sprintf("query %d at %v", i, center))
	}
}
