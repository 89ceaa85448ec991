// Package rtree implements the read-only spatial index used by the
// clustering pipeline. Points are bulk-loaded into an R-Tree keyed by
// the bounding rectangle of their radius footprint, so a within-radius
// query becomes a point-in-rectangle sweep followed by a precise
// haversine filter.
package rtree

import (
	"runtime"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-geo-cluster/pkg/geomath"
	"github.com/kass/go-geo-cluster/pkg/models"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	// queryTolerance is the edge length of the degenerate rectangle a
	// query point is expanded to; rtreego rejects zero-sized rects.
	queryTolerance = 1e-9
)

// spatialPoint wraps an arena index to implement rtreego.Spatial
type spatialPoint struct {
	idx  uint32
	rect *rtreego.Rect
}

func (sp *spatialPoint) Bounds() *rtreego.Rect {
	return sp.rect
}

// PointIndex is an immutable R-Tree over a point arena. It is built
// once per pipeline run and shared read-only between workers; queries
// return arena indices.
type PointIndex struct {
	tree   *rtreego.Rtree
	points []models.Location
	byKey  map[models.Key]uint32
	radius float64
}

// NewPointIndex bulk-loads an index over the given arena. Each point's
// footprint rectangle is sized by radiusMeters, so Within finds every
// point whose footprint contains the query location. The arena must
// already be deduped by rounded center.
func NewPointIndex(points []models.Location, radiusMeters float64) *PointIndex {
	byKey := make(map[models.Key]uint32, len(points))
	for i, p := range points {
		byKey[p.Key()] = uint32(i)
	}

	// Build spatial items in parallel using a worker pool
	items := make([]*spatialPoint, len(points))
	numWorkers := runtime.NumCPU()
	workerCh := make(chan int, len(points))
	var wg sync.WaitGroup

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range workerCh {
				p := points[idx]
				dLat, dLon := geomath.DegreeDelta(radiusMeters, p.Lat)
				rect, err := rtreego.NewRect(
					rtreego.Point{p.Lat - dLat, p.Lon - dLon},
					[]float64{2 * dLat, 2 * dLon},
				)
				if err != nil {
					continue
				}
				items[idx] = &spatialPoint{idx: uint32(idx), rect: rect}
			}
		}()
	}

	for i := range points {
		workerCh <- i
	}
	close(workerCh)
	wg.Wait()

	spatials := make([]rtreego.Spatial, 0, len(items))
	for _, item := range items {
		if item != nil {
			spatials = append(spatials, item)
		}
	}

	return &PointIndex{
		tree:   rtreego.NewTree(dimensions, minChildren, maxChildren, spatials...),
		points: points,
		byKey:  byKey,
		radius: radiusMeters,
	}
}

// Within returns the arena indices of all points within the index
// radius of center. Candidates are gathered by rectangle intersection,
// then filtered by actual distance.
func (ix *PointIndex) Within(center models.Location) []uint32 {
	bounds, err := rtreego.NewRect(
		rtreego.Point{center.Lat, center.Lon},
		[]float64{queryTolerance, queryTolerance},
	)
	if err != nil {
		return nil
	}

	results := ix.tree.SearchIntersect(bounds)

	indices := make([]uint32, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialPoint)
		if !ok {
			continue
		}
		dist := geomath.Haversine(center, ix.points[item.idx])
		if dist <= ix.radius {
			indices = append(indices, item.idx)
		}
	}
	return indices
}

// Contains reports whether a point with the same rounded center is
// indexed, and returns its arena index.
func (ix *PointIndex) Contains(p models.Location) (uint32, bool) {
	idx, ok := ix.byKey[p.Key()]
	return idx, ok
}

// Point returns the arena point at the given index.
func (ix *PointIndex) Point(idx uint32) models.Location {
	return ix.points[idx]
}

// Len returns the number of indexed points.
func (ix *PointIndex) Len() int {
	return len(ix.points)
}

// Radius returns the footprint radius the index was built with.
func (ix *PointIndex) Radius() float64 {
	return ix.radius
}
