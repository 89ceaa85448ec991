package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-cluster/pkg/models"
)

func TestShardedRunCoversAllGroups(t *testing.T) {
	// Two tight groups far enough apart to land in different cells at
	// the split level.
	a := models.Location{Lat: 40.0, Lon: -75.0}
	b := models.Location{Lat: 45.0, Lon: -70.0}
	input := []models.Location{
		a, offset(a, 20, 10), offset(a, -15, -5),
		b, offset(b, 20, 10), offset(b, -15, -5),
	}

	g := mustNew(t, Config{Mode: ModeFast, Radius: 70, MinPoints: 1, SplitLevel: 6})
	centers, stats := g.RunWithStats(input)

	require.NotEmpty(t, centers)
	assert.Equal(t, 2, stats.Shards)

	for _, p := range input {
		covered := false
		for _, c := range centers {
			if coverage(c, []models.Location{p}, 70) == 1 {
				covered = true
			}
		}
		assert.True(t, covered, "input %v not covered by any shard output", p)
	}
}

func TestShardedMatchesUnshardedOnSeparatedInput(t *testing.T) {
	// With groups that cannot straddle a cell boundary's radius ring,
	// sharding only partitions work and the merged result matches the
	// single-shard run.
	a := models.Location{Lat: 40.0, Lon: -75.0}
	b := models.Location{Lat: 45.0, Lon: -70.0}
	input := []models.Location{
		a, offset(a, 20, 10),
		b, offset(b, 20, 10),
	}

	unsharded := mustNew(t, Config{Mode: ModeFast, Radius: 70, MinPoints: 1}).Run(input)
	sharded := mustNew(t, Config{Mode: ModeFast, Radius: 70, MinPoints: 1, SplitLevel: 6}).Run(input)

	assert.Equal(t, unsharded, sharded)
}

func TestShardedMergeDeduplicates(t *testing.T) {
	a := models.Location{Lat: 40.0, Lon: -75.0}
	input := []models.Location{a, offset(a, 10, 10)}

	g := mustNew(t, Config{Mode: ModeFast, Radius: 70, MinPoints: 1, SplitLevel: 6})
	centers := g.Run(input)

	seen := make(map[models.Key]struct{})
	for _, c := range centers {
		_, dup := seen[c.Key()]
		assert.False(t, dup)
		seen[c.Key()] = struct{}{}
	}
}
