package cluster

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelindar/bitmap"

	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/rtree"
)

// Run clusters the input and returns the chosen centers, sorted by
// coordinate. Duplicate input points (by rounded center) are collapsed
// before clustering; empty input yields empty output.
func (g *Greedy) Run(points []models.Location) []models.Location {
	centers, _ := g.RunWithStats(points)
	return centers
}

// RunWithStats is Run plus a statistics record for the run.
func (g *Greedy) RunWithStats(points []models.Location) ([]models.Location, *Stats) {
	start := time.Now()
	g.log.Info("starting algorithm", "points", len(points), "mode", g.cfg.Mode.String())

	st := &Stats{}
	arena := models.Dedupe(points)
	st.InputPoints = len(arena)

	var centers []models.Location
	if len(arena) == 0 {
		centers = []models.Location{}
	} else if g.cfg.SplitLevel == 1 {
		st.Shards = 1
		centers = sortCenters(g.setup(arena, st))
	} else {
		centers = g.runSharded(arena, st)
	}

	st.TotalSeconds = elapsed(start)
	g.log.Info("finished", "clusters", len(centers), "seconds", fmt.Sprintf("%.2f", st.TotalSeconds))
	return centers, st
}

// setup runs the full single-shard pipeline: index, candidates,
// coverage, greedy selection and dedupe. st may be nil for shard
// workers.
func (g *Greedy) setup(arena []models.Location, st *Stats) []models.Location {
	phase := time.Now()
	pointTree := rtree.NewPointIndex(arena, g.cfg.Radius)
	g.log.Debug("created point tree", "points", pointTree.Len(), "seconds", elapsed(phase))
	if st != nil {
		st.IndexSeconds += elapsed(phase)
	}

	phase = time.Now()
	var candidates []models.Location
	switch g.cfg.Mode {
	case ModeBetter, ModeBest:
		candidates = g.s2Candidates(arena)
	case ModeFast:
		candidates = g.interpolatedCandidates(arena, pointTree)
	default:
		// Balanced widens the neighborhood: interpolation partners come
		// from a second index at twice the radius.
		neighborTree := rtree.NewPointIndex(arena, g.cfg.Radius*2)
		candidates = g.interpolatedCandidates(arena, neighborTree)
	}
	g.log.Debug("created possible clusters", "candidates", len(candidates), "seconds", elapsed(phase))
	if st != nil {
		st.Candidates += len(candidates)
		st.CandidateSeconds += elapsed(phase)
	}

	phase = time.Now()
	clusters := g.buildClusters(candidates, pointTree)
	g.log.Debug("associated points with clusters", "clusters", len(clusters), "seconds", elapsed(phase))
	if st != nil {
		st.BuildSeconds += elapsed(phase)
	}

	phase = time.Now()
	chosen := g.selectClusters(clusters)
	g.log.Debug("initial solution", "clusters", len(chosen), "seconds", elapsed(phase))
	if st != nil {
		st.SelectedBeforeDedupe += len(chosen)
		st.SelectSeconds += elapsed(phase)
	}

	phase = time.Now()
	centers := g.dedupe(chosen)
	g.log.Debug("deduped solution", "clusters", len(centers), "seconds", elapsed(phase))
	if st != nil {
		st.SelectedAfterDedupe += len(centers)
		st.DedupeSeconds += elapsed(phase)
	}

	return centers
}

// sortCenters orders a center set by coordinate so output does not
// depend on selection internals.
func sortCenters(centers []models.Location) []models.Location {
	set := make(map[models.Key]models.Location, len(centers))
	for _, c := range centers {
		set[c.Key()] = c
	}
	return sortedByKey(set)
}

// roundCluster is a cluster's per-round view: its coverage minus the
// points blocked by earlier rounds.
type roundCluster struct {
	c         *cluster
	effective bitmap.Bitmap
	size      int
}

// selectClusters is the greedy selection loop. Each round computes
// every remaining cluster's effective coverage in parallel, then scans
// the survivors sequentially in the global coverage order, accepting
// any that clear the current threshold without touching points already
// claimed this round. The threshold starts at a sentinel and drops to
// the best score seen each round, so all candidates of the current top
// coverage are accepted before the bar lowers.
func (g *Greedy) selectClusters(clusters []*cluster) []*cluster {
	var blocked bitmap.Bitmap
	chosen := make([]*cluster, 0)
	chosenSet := make(map[models.Key]struct{})

	highest := initialThreshold
	totalIterations := 0
	currentIteration := 0

greedy:
	for highest > g.cfg.MinPoints && len(chosen) < g.maxClusters {
		survivors := g.effectivePass(clusters, chosenSet, blocked)

		best := 0
	clusterLoop:
		for _, rc := range survivors {
			if len(chosen) >= g.maxClusters {
				break greedy
			}
			length := rc.size + 1 // the center counts as a covered unit
			if length > best {
				best = length
			}
			if length < highest {
				continue
			}
			if _, ok := chosenSet[rc.c.center.Key()]; ok {
				continue
			}
			// Effective sets were computed before this round's picks;
			// re-check so a cluster loses points claimed by an earlier
			// accept in the same round.
			conflict := rc.effective.Clone(nil)
			conflict.And(blocked)
			if conflict.Count() > 0 {
				continue clusterLoop
			}
			blocked.Or(rc.effective)
			chosenSet[rc.c.center.Key()] = struct{}{}
			chosen = append(chosen, rc.c)
		}

		if best+1 < highest && best > 0 {
			totalIterations = best*2 - g.cfg.MinPoints*2 + currentIteration
		}
		currentIteration++
		highest = best

		g.reportProgress(highest, currentIteration, totalIterations, len(chosen))
	}

	return chosen
}

// effectivePass computes, in parallel, each unchosen cluster's coverage
// minus the blocked set, dropping clusters that fall below MinPoints.
// Survivors come back in the clusters' global sorted order.
func (g *Greedy) effectivePass(clusters []*cluster, chosenSet map[models.Key]struct{}, blocked bitmap.Bitmap) []*roundCluster {
	passed := make([]*roundCluster, len(clusters))

	workerCh := make(chan int, len(clusters))
	var wg sync.WaitGroup

	wg.Add(g.cfg.Workers)
	for w := 0; w < g.cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range workerCh {
				c := clusters[idx]
				if _, ok := chosenSet[c.center.Key()]; ok {
					continue
				}
				effective := c.all.Clone(nil)
				effective.AndNot(blocked)
				size := effective.Count()
				if size < g.cfg.MinPoints {
					continue
				}
				passed[idx] = &roundCluster{c: c, effective: effective, size: size}
			}
		}()
	}

	for i := range clusters {
		workerCh <- i
	}
	close(workerCh)
	wg.Wait()

	survivors := make([]*roundCluster, 0, len(passed))
	for _, rc := range passed {
		if rc != nil {
			survivors = append(survivors, rc)
		}
	}
	return survivors
}

// reportProgress writes the carriage-return progress line. The
// estimator is observational only.
func (g *Greedy) reportProgress(highest, currentIteration, totalIterations, chosen int) {
	if g.cfg.Progress == nil {
		return
	}
	if highest >= g.cfg.MinPoints && totalIterations > 0 {
		pct := float64(currentIteration) / float64(totalIterations) * 100
		fmt.Fprintf(g.cfg.Progress, "\rProgress: %.2f%% | Clusters: %d", pct, chosen)
	} else if highest < g.cfg.MinPoints {
		fmt.Fprintln(g.cfg.Progress)
	}
}
