// Package cluster implements a greedy set-cover style clusterer for
// geographic points: candidate centers are generated from the input
// cloud (or from S2 cell tiling), scored by how many points fall within
// a fixed scan radius, and selected greedily until no candidate covers
// enough unclaimed points. A final dedupe pass removes clusters whose
// coverage is fully subsumed by the rest of the solution.
package cluster

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"github.com/kelindar/bitmap"

	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/s2cell"
)

// Mode selects the candidate generation strategy: Fast and Balanced
// interpolate between neighboring input points, Better and Best
// enumerate S2 cells covering the input bounding box. The zero value is
// Balanced.
type Mode int

const (
	ModeBalanced Mode = iota
	ModeFast
	ModeBetter
	ModeBest
)

func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeBalanced:
		return "balanced"
	case ModeBetter:
		return "better"
	case ModeBest:
		return "best"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "fast":
		return ModeFast, nil
	case "balanced":
		return ModeBalanced, nil
	case "better":
		return ModeBetter, nil
	case "best":
		return ModeBest, nil
	default:
		return ModeBalanced, fmt.Errorf("unknown cluster mode %q", s)
	}
}

const (
	// DefaultRadius is the scan radius in meters.
	DefaultRadius = 70.0

	// Wiggle offsets, in degrees, applied to interpolated candidates in
	// Balanced mode. Empirical values; tunable via Config.
	DefaultWiggleLarge = 0.00025
	DefaultWiggleSmall = 0.0001

	// interpolationSteps is the number of ratio steps between a point
	// and each of its neighbors.
	interpolationSteps = 8

	// initialThreshold is the sentinel the greedy acceptance bar starts
	// at before the first round establishes the real best score.
	initialThreshold = 100
)

// Config holds the clusterer settings. The zero value of each field
// selects its default.
type Config struct {
	// Mode selects the candidate generation strategy.
	Mode Mode

	// Radius is the scan radius in meters. Zero selects DefaultRadius;
	// negative values are rejected.
	Radius float64

	// MinPoints is the minimum coverage a cluster must provide. Zero
	// selects 1.
	MinPoints int

	// MaxClusters caps the solution size. Zero means unlimited.
	MaxClusters int

	// SplitLevel is the S2 cell level used to shard the input across
	// workers. 1 (the default) disables sharding; values outside
	// [1, 12] are coerced to 1 with a warning.
	SplitLevel int

	// WiggleLarge and WiggleSmall override the Balanced-mode jitter
	// offsets. Zero selects the defaults.
	WiggleLarge float64
	WiggleSmall float64

	// Workers bounds the goroutines used for parallel passes. Zero
	// selects GOMAXPROCS.
	Workers int

	// Progress, if set, receives a carriage-return progress line during
	// the greedy selection loop.
	Progress io.Writer
}

// Greedy runs the clustering pipeline with a fixed configuration. It is
// stateless between runs and safe for concurrent use.
type Greedy struct {
	cfg         Config
	maxClusters int
	log         *slog.Logger
}

// New validates the configuration and returns a ready clusterer.
func New(cfg Config) (*Greedy, error) {
	log := slog.Default().With("component", "cluster")

	if cfg.Radius < 0 {
		return nil, fmt.Errorf("radius must be positive, got %f", cfg.Radius)
	}
	if cfg.Radius == 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.MinPoints < 1 {
		cfg.MinPoints = 1
	}
	if cfg.SplitLevel == 0 {
		cfg.SplitLevel = 1
	}
	if cfg.SplitLevel < s2cell.MinSplitLevel || cfg.SplitLevel > s2cell.MaxSplitLevel {
		log.Warn("split level out of range, using 1",
			"level", cfg.SplitLevel,
			"min", s2cell.MinSplitLevel,
			"max", s2cell.MaxSplitLevel)
		cfg.SplitLevel = 1
	}
	if cfg.WiggleLarge == 0 {
		cfg.WiggleLarge = DefaultWiggleLarge
	}
	if cfg.WiggleSmall == 0 {
		cfg.WiggleSmall = DefaultWiggleSmall
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	maxClusters := cfg.MaxClusters
	if maxClusters <= 0 {
		maxClusters = math.MaxInt
	}

	return &Greedy{cfg: cfg, maxClusters: maxClusters, log: log}, nil
}

// Config returns the normalized configuration the clusterer runs with.
func (g *Greedy) Config() Config {
	return g.cfg
}

// cluster pairs a candidate center with the set of input points within
// radius, as a bitset over arena indices.
type cluster struct {
	center models.Location
	all    bitmap.Bitmap
	size   int
}
