package cluster

import (
	"sort"
	"sync"

	"github.com/kelindar/bitmap"

	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/rtree"
)

// buildClusters associates every candidate with the input points inside
// its radius, drops candidates that cover nothing, and sorts the rest
// by coverage size descending. The sort is stable so ties keep the
// candidates' deterministic generation order.
func (g *Greedy) buildClusters(candidates []models.Location, points *rtree.PointIndex) []*cluster {
	built := make([]*cluster, len(candidates))

	workerCh := make(chan int, len(candidates))
	var wg sync.WaitGroup

	wg.Add(g.cfg.Workers)
	for w := 0; w < g.cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range workerCh {
				built[idx] = g.buildCluster(candidates[idx], points)
			}
		}()
	}

	for i := range candidates {
		workerCh <- i
	}
	close(workerCh)
	wg.Wait()

	clusters := make([]*cluster, 0, len(built))
	for _, c := range built {
		if c != nil {
			clusters = append(clusters, c)
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].size > clusters[j].size
	})
	return clusters
}

func (g *Greedy) buildCluster(candidate models.Location, points *rtree.PointIndex) *cluster {
	covered := points.Within(candidate)
	if len(covered) == 0 {
		// A candidate that coincides with an input point can miss its
		// own footprint on the rectangle sweep; count it as covering
		// itself.
		if idx, ok := points.Contains(candidate); ok {
			covered = append(covered, idx)
		}
	}
	if len(covered) == 0 {
		return nil
	}

	var all bitmap.Bitmap
	for _, idx := range covered {
		all.Set(idx)
	}
	return &cluster{
		center: candidate,
		all:    all,
		size:   len(covered),
	}
}
