// Package geomath provides the geodesic primitives used by the
// clustering pipeline: spherical distance, chord interpolation and
// meter/degree conversions.
package geomath

import (
	"math"

	"github.com/kass/go-geo-cluster/pkg/models"
)

// EarthRadiusMeters is an approximate representation of the earth's radius in meters.
const EarthRadiusMeters = 6371008.8

// Haversine calculates the distance between two locations in meters.
func Haversine(a, b models.Location) float64 {
	lat1Rad := a.Lat * math.Pi / 180.0
	lon1Rad := a.Lon * math.Pi / 180.0
	lat2Rad := b.Lat * math.Pi / 180.0
	lon2Rad := b.Lon * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Interpolate returns the point at parameter ratio along the straight
// lat/lon segment from a to b, offset by the given wiggle. Linear
// interpolation in degrees; callers only use it for near neighbors
// (within twice the scan radius), where the chord error is negligible.
func Interpolate(a, b models.Location, ratio, wiggleLat, wiggleLon float64) models.Location {
	return models.Location{
		Lat: a.Lat + (b.Lat-a.Lat)*ratio + wiggleLat,
		Lon: a.Lon + (b.Lon-a.Lon)*ratio + wiggleLon,
	}
}

// DegreeDelta converts a distance in meters into a conservative
// (latitude, longitude) degree bound at the given latitude. The
// longitude delta widens with latitude; near the poles the cosine is
// clamped so the bound stays finite.
func DegreeDelta(meters, lat float64) (dLat, dLon float64) {
	// A small relative pad keeps floating-point rounding from leaving
	// the bound short of the requested distance.
	dLat = (meters / EarthRadiusMeters) * (180 / math.Pi) * (1 + 1e-6)
	cos := math.Cos(lat * math.Pi / 180.0)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon = dLat / cos
	return dLat, dLon
}

// BBox returns the axis-aligned bounding box of the points and whether
// the input was non-empty.
func BBox(points []models.Location) (models.BoundingBox, bool) {
	if len(points) == 0 {
		return models.BoundingBox{}, false
	}
	box := models.BoundingBox{
		BottomLeft: points[0],
		TopRight:   points[0],
	}
	for _, p := range points[1:] {
		if p.Lat < box.BottomLeft.Lat {
			box.BottomLeft.Lat = p.Lat
		}
		if p.Lat > box.TopRight.Lat {
			box.TopRight.Lat = p.Lat
		}
		if p.Lon < box.BottomLeft.Lon {
			box.BottomLeft.Lon = p.Lon
		}
		if p.Lon > box.TopRight.Lon {
			box.TopRight.Lon = p.Lon
		}
	}
	return box, true
}
