package cluster

import (
	"github.com/kelindar/bitmap"

	"github.com/kass/go-geo-cluster/pkg/models"
)

// dedupe removes chosen clusters whose coverage is fully provided by
// the rest of the solution: a cluster survives only if it covers at
// least MinPoints points no other chosen cluster covers. When MinPoints
// is 1, a second pass re-adds clusters contributing at least one point
// the kept set has not seen, in selection order.
func (g *Greedy) dedupe(chosen []*cluster) []models.Location {
	// How many chosen clusters cover each point; a point with count 1
	// is unique to its cluster.
	counts := make(map[uint32]int)
	for _, c := range chosen {
		c.all.Range(func(x uint32) {
			counts[x]++
		})
	}

	var seen bitmap.Bitmap
	solution := make([]models.Location, 0, len(chosen))
	solutionSet := make(map[models.Key]struct{}, len(chosen))

	add := func(c *cluster) {
		k := c.center.Key()
		if _, ok := solutionSet[k]; ok {
			return
		}
		solutionSet[k] = struct{}{}
		solution = append(solution, c.center)
	}

	for _, c := range chosen {
		unique := 0
		c.all.Range(func(x uint32) {
			if counts[x] == 1 {
				unique++
			}
		})
		if unique == 0 || unique < g.cfg.MinPoints {
			continue
		}
		seen.Or(c.all)
		add(c)
	}

	if g.cfg.MinPoints == 1 {
		for _, c := range chosen {
			valid := false
			c.all.Range(func(x uint32) {
				if !seen.Contains(x) {
					valid = true
				}
			})
			if valid {
				seen.Or(c.all)
				add(c)
			}
		}
	}

	return solution
}
