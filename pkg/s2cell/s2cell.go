// Package s2cell wraps the S2 geometry operations the clusterer needs:
// fixed-level cell enumeration over a bounding box and cell-ID
// bucketing of points for sharded runs.
package s2cell

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/kass/go-geo-cluster/pkg/models"
)

const (
	// CandidateLevel is the S2 level Best/Better candidate generation
	// enumerates; its cells are a few meters across, much finer than a
	// scan radius.
	CandidateLevel = 22

	// MinSplitLevel and MaxSplitLevel bound the cell level used to
	// shard an input across workers.
	MinSplitLevel = 1
	MaxSplitLevel = 12
)

// IDAtLevel returns the S2 cell ID containing the location at the given level.
func IDAtLevel(p models.Location, level int) uint64 {
	leaf := s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
	return uint64(leaf.Parent(level))
}

// CentersInBBox enumerates every S2 cell of the given level covering
// the bounding box and returns each cell's center.
func CentersInBBox(box models.BoundingBox, level int) []models.Location {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(box.BottomLeft.Lat, box.BottomLeft.Lon)).
		AddPoint(s2.LatLngFromDegrees(box.TopRight.Lat, box.TopRight.Lon))

	coverer := &s2.RegionCoverer{
		MinLevel: level,
		MaxLevel: level,
		MaxCells: math.MaxInt32,
	}
	covering := coverer.Covering(rect)

	centers := make([]models.Location, 0, len(covering))
	for _, id := range covering {
		ll := id.LatLng()
		centers = append(centers, models.Location{
			Lat: ll.Lat.Degrees(),
			Lon: ll.Lng.Degrees(),
		})
	}
	return centers
}

// SplitByCell partitions points into buckets keyed by their S2 cell ID
// at the given level. Bucket slices preserve input order.
func SplitByCell(points []models.Location, level int) map[uint64][]models.Location {
	buckets := make(map[uint64][]models.Location)
	for _, p := range points {
		id := IDAtLevel(p, level)
		buckets[id] = append(buckets[id], p)
	}
	return buckets
}
