package geomath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-cluster/pkg/models"
)

func TestHaversine(t *testing.T) {
	testCases := []struct {
		name      string
		a, b      models.Location
		expected  float64 // meters
		tolerance float64
	}{
		{
			name:      "same point",
			a:         models.Location{Lat: 40.0, Lon: -75.0},
			b:         models.Location{Lat: 40.0, Lon: -75.0},
			expected:  0,
			tolerance: 0.001,
		},
		{
			name:      "one degree of longitude at 40N",
			a:         models.Location{Lat: 40.0, Lon: -75.0},
			b:         models.Location{Lat: 40.0, Lon: -74.0},
			expected:  85_200,
			tolerance: 500,
		},
		{
			name:      "SF to LA",
			a:         models.Location{Lat: 37.7749, Lon: -122.4194},
			b:         models.Location{Lat: 34.0522, Lon: -118.2437},
			expected:  559_000,
			tolerance: 2_000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Haversine(tc.a, tc.b), tc.tolerance)
			assert.InDelta(t, tc.expected, Haversine(tc.b, tc.a), tc.tolerance)
		})
	}
}

func TestInterpolate(t *testing.T) {
	a := models.Location{Lat: 40.0, Lon: -75.0}
	b := models.Location{Lat: 40.001, Lon: -75.002}

	assert.Equal(t, a, Interpolate(a, b, 0, 0, 0))

	end := Interpolate(a, b, 1, 0, 0)
	assert.InDelta(t, b.Lat, end.Lat, 1e-12)
	assert.InDelta(t, b.Lon, end.Lon, 1e-12)

	mid := Interpolate(a, b, 0.5, 0, 0)
	assert.InDelta(t, 40.0005, mid.Lat, 1e-9)
	assert.InDelta(t, -75.001, mid.Lon, 1e-9)

	wiggled := Interpolate(a, b, 0.5, 0.0001, -0.0002)
	assert.InDelta(t, 40.0006, wiggled.Lat, 1e-9)
	assert.InDelta(t, -75.0012, wiggled.Lon, 1e-9)
}

func TestDegreeDelta(t *testing.T) {
	// The degree bound must always contain the circle of the given radius.
	for _, lat := range []float64{0, 40, 60, 85} {
		dLat, dLon := DegreeDelta(70, lat)
		assert.Positive(t, dLat)
		assert.GreaterOrEqual(t, dLon, dLat)

		center := models.Location{Lat: lat, Lon: 10}
		north := models.Location{Lat: lat + dLat, Lon: 10}
		assert.GreaterOrEqual(t, Haversine(center, north), 70.0)
	}
}

func TestDegreeDeltaNearPole(t *testing.T) {
	_, dLon := DegreeDelta(70, 89.9999)
	assert.False(t, dLon > 1.0, "longitude delta must stay clamped near the poles")
}

func TestBBox(t *testing.T) {
	points := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 41.0, Lon: -74.0},
		{Lat: 39.5, Lon: -76.0},
	}

	box, ok := BBox(points)
	require.True(t, ok)
	assert.Equal(t, 39.5, box.BottomLeft.Lat)
	assert.Equal(t, -76.0, box.BottomLeft.Lon)
	assert.Equal(t, 41.0, box.TopRight.Lat)
	assert.Equal(t, -74.0, box.TopRight.Lon)
}

func TestBBoxDegenerate(t *testing.T) {
	_, ok := BBox(nil)
	assert.False(t, ok)

	box, ok := BBox([]models.Location{{Lat: 40, Lon: -75}})
	require.True(t, ok)
	assert.Equal(t, box.BottomLeft, box.TopRight)
}
