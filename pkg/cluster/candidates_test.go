package cluster

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/rtree"
)

func TestInterpolatedCandidatesIncludeSources(t *testing.T) {
	arena := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0004, Lon: -75.0004},
	}
	g := mustNew(t, Config{Mode: ModeFast, Radius: 70})
	index := rtree.NewPointIndex(arena, 70)

	candidates := g.interpolatedCandidates(arena, index)

	keys := make(map[models.Key]struct{}, len(candidates))
	for _, c := range candidates {
		keys[c.Key()] = struct{}{}
	}
	for _, p := range arena {
		_, ok := keys[p.Key()]
		assert.True(t, ok, "source point %v missing from candidates", p)
	}
}

func TestInterpolatedCandidatesBetweenNeighbors(t *testing.T) {
	a := models.Location{Lat: 40.0, Lon: -75.0}
	b := offset(a, 100, 0) // within the 2r neighborhood at radius 70
	arena := []models.Location{a, b}

	g := mustNew(t, Config{Mode: ModeBalanced, Radius: 70})
	neighbors := rtree.NewPointIndex(arena, 140)

	candidates := g.interpolatedCandidates(arena, neighbors)

	// Eight ratio steps between two mutual neighbors plus jitter:
	// candidates must fill the segment between a and b.
	between := 0
	for _, c := range candidates {
		if c.Lat > a.Lat && c.Lat < b.Lat {
			between++
		}
	}
	assert.Greater(t, between, 8)
}

func TestBalancedEmitsMoreCandidatesThanFast(t *testing.T) {
	arena := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0004, Lon: -75.0004},
		{Lat: 40.0008, Lon: -75.0},
	}
	index := rtree.NewPointIndex(arena, 140)

	fast := mustNew(t, Config{Mode: ModeFast, Radius: 70})
	balanced := mustNew(t, Config{Mode: ModeBalanced, Radius: 70})

	fastCandidates := fast.interpolatedCandidates(arena, index)
	balancedCandidates := balanced.interpolatedCandidates(arena, index)

	assert.Greater(t, len(balancedCandidates), len(fastCandidates))
}

func TestCandidatesSortedAndDeduped(t *testing.T) {
	arena := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0003, Lon: -75.0002},
		{Lat: 40.0006, Lon: -75.0004},
	}
	g := mustNew(t, Config{Mode: ModeFast, Radius: 70})
	index := rtree.NewPointIndex(arena, 70)

	candidates := g.interpolatedCandidates(arena, index)
	require.NotEmpty(t, candidates)

	sorted := sort.SliceIsSorted(candidates, func(i, j int) bool {
		return candidates[i].Key().Less(candidates[j].Key())
	})
	assert.True(t, sorted, "candidates must come back in coordinate order")

	seen := make(map[models.Key]struct{})
	for _, c := range candidates {
		_, dup := seen[c.Key()]
		assert.False(t, dup, "duplicate candidate %v", c)
		seen[c.Key()] = struct{}{}
	}
}

func TestS2CandidatesCoverBBox(t *testing.T) {
	arena := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0002, Lon: -75.0002},
	}
	g := mustNew(t, Config{Mode: ModeBest, Radius: 70})

	candidates := g.s2Candidates(arena)
	require.NotEmpty(t, candidates)

	// Level-22 cells are a few meters across; every input point must
	// have a candidate nearby.
	for _, p := range arena {
		near := false
		for _, c := range candidates {
			if coverage(c, []models.Location{p}, 20) == 1 {
				near = true
				break
			}
		}
		assert.True(t, near, "no candidate near %v", p)
	}
}

func TestS2CandidatesEmptyArena(t *testing.T) {
	g := mustNew(t, Config{Mode: ModeBest})
	assert.Empty(t, g.s2Candidates(nil))
}

func TestBestModeEndToEnd(t *testing.T) {
	input := []models.Location{
		{Lat: 40.0, Lon: -75.0},
		{Lat: 40.0003, Lon: -75.0003},
	}
	g := mustNew(t, Config{Mode: ModeBest, Radius: 70, MinPoints: 1})

	centers := g.Run(input)

	require.NotEmpty(t, centers)
	for _, p := range input {
		found := false
		for _, c := range centers {
			if coverage(c, []models.Location{p}, 70) == 1 {
				found = true
			}
		}
		assert.True(t, found, "input %v not covered", p)
	}
}
