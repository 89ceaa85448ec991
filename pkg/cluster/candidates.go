package cluster

import (
	"sort"
	"sync"

	"github.com/kass/go-geo-cluster/pkg/geomath"
	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/rtree"
	"github.com/kass/go-geo-cluster/pkg/s2cell"
)

// interpolatedCandidates proposes cluster centers by interpolating
// between each arena point and its neighbors from the given index. In
// Balanced mode each step additionally emits jittered variants at the
// configured wiggle offsets. The union is deduped by rounded center and
// returned sorted by coordinate so candidate order does not depend on
// goroutine scheduling.
func (g *Greedy) interpolatedCandidates(arena []models.Location, neighbors *rtree.PointIndex) []models.Location {
	merged := make(map[models.Key]models.Location, len(arena))
	var mu sync.Mutex

	workerCh := make(chan int, len(arena))
	var wg sync.WaitGroup

	wg.Add(g.cfg.Workers)
	for w := 0; w < g.cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			local := make(map[models.Key]models.Location)
			for idx := range workerCh {
				g.candidatesForPoint(arena[idx], neighbors, local)
			}
			mu.Lock()
			for k, v := range local {
				merged[k] = v
			}
			mu.Unlock()
		}()
	}

	for i := range arena {
		workerCh <- i
	}
	close(workerCh)
	wg.Wait()

	return sortedByKey(merged)
}

// candidatesForPoint emits the interpolation candidates for one source
// point into the worker-local set.
func (g *Greedy) candidatesForPoint(point models.Location, neighbors *rtree.PointIndex, out map[models.Key]models.Location) {
	insert := func(p models.Location) {
		out[p.Key()] = p
	}

	for _, nIdx := range neighbors.Within(point) {
		neighbor := neighbors.Point(nIdx)
		for i := 0; i < interpolationSteps; i++ {
			ratio := float64(i) / float64(interpolationSteps)
			insert(geomath.Interpolate(point, neighbor, ratio, 0, 0))
			if g.cfg.Mode != ModeBalanced {
				continue
			}
			for _, wiggle := range []float64{g.cfg.WiggleLarge, g.cfg.WiggleSmall} {
				wiggleLat := wiggle / 2
				wiggleLon := wiggle
				insert(geomath.Interpolate(point, neighbor, ratio, wiggleLat, wiggleLon))
				insert(geomath.Interpolate(point, neighbor, ratio, wiggleLat, -wiggleLon))
				insert(geomath.Interpolate(point, neighbor, ratio, -wiggleLat, wiggleLon))
				insert(geomath.Interpolate(point, neighbor, ratio, -wiggleLat, -wiggleLon))
			}
		}
	}
	insert(point)
}

// s2Candidates proposes one center per S2 cell of CandidateLevel
// covering the input bounding box.
func (g *Greedy) s2Candidates(arena []models.Location) []models.Location {
	box, ok := geomath.BBox(arena)
	if !ok {
		return nil
	}
	centers := s2cell.CentersInBBox(box, s2cell.CandidateLevel)

	merged := make(map[models.Key]models.Location, len(centers))
	for _, c := range centers {
		merged[c.Key()] = c
	}
	return sortedByKey(merged)
}

func sortedByKey(set map[models.Key]models.Location) []models.Location {
	keys := make([]models.Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]models.Location, len(keys))
	for i, k := range keys {
		out[i] = set[k]
	}
	return out
}
