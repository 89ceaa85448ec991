// Package models defines the shared value types for the clustering
// pipeline: geographic locations, their rounded identity keys, and
// bounding boxes.
package models

import "math"

// Precision is the number of decimal places used when rounding
// coordinates for identity. Two locations are the same point iff their
// rounded centers are equal.
const Precision = 6

const keyScale = 1e6 // 10^Precision

// Location represents a geographic location with latitude and longitude
// in WGS84 decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key is the content address of a Location: its center rounded to
// Precision decimal places, stored as scaled integers so it is safe to
// use as a map key.
type Key struct {
	Lat int64
	Lon int64
}

// Key returns the rounded identity of the location.
func (l Location) Key() Key {
	return Key{
		Lat: int64(math.Round(l.Lat * keyScale)),
		Lon: int64(math.Round(l.Lon * keyScale)),
	}
}

// Rounded returns the location snapped to Precision decimal places.
func (l Location) Rounded() Location {
	return l.Key().Location()
}

// Location converts the key back to its rounded coordinates.
func (k Key) Location() Location {
	return Location{
		Lat: float64(k.Lat) / keyScale,
		Lon: float64(k.Lon) / keyScale,
	}
}

// Less orders keys by latitude, then longitude. Used to give parallel
// reductions a deterministic order.
func (k Key) Less(o Key) bool {
	if k.Lat != o.Lat {
		return k.Lat < o.Lat
	}
	return k.Lon < o.Lon
}

// BoundingBox represents a rectangular area defined by two corners.
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Dedupe returns the locations with duplicate rounded centers removed,
// preserving first-seen order.
func Dedupe(points []Location) []Location {
	seen := make(map[Key]struct{}, len(points))
	out := make([]Location, 0, len(points))
	for _, p := range points {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
