package cluster

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/s2cell"
)

// runSharded partitions the input by S2 cell at the configured split
// level and runs the full pipeline per shard in parallel, merging the
// shard outputs by set union on rounded center. Shards do not see each
// other's points, so a cluster straddling a cell boundary is split;
// that loss is the accepted cost of the parallelism. A shard that
// panics is logged and contributes nothing; the others continue.
func (g *Greedy) runSharded(arena []models.Location, st *Stats) []models.Location {
	buckets := s2cell.SplitByCell(arena, g.cfg.SplitLevel)
	st.Shards = len(buckets)

	merged := make(map[models.Key]models.Location)
	var mu sync.Mutex

	var eg errgroup.Group
	for id, bucket := range buckets {
		g.log.Debug("shard", "cell", id, "points", len(bucket))
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					g.log.Error("shard worker failed, dropping its output", "cell", id, "panic", r)
				}
			}()
			centers := g.setup(bucket, nil)
			mu.Lock()
			for _, c := range centers {
				merged[c.Key()] = c
			}
			mu.Unlock()
			return nil
		})
	}
	g.log.Info("created shard workers", "count", len(buckets))
	_ = eg.Wait() // workers recover their own panics and never error

	st.SelectedAfterDedupe = len(merged)
	return sortedByKey(merged)
}
