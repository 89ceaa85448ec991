package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kass/go-geo-cluster/pkg/cluster"
	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/postgis"
	"github.com/kass/go-geo-cluster/pkg/rtree"
)

var (
	pointsFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "go-geo-cluster",
	Short: "Greedy coverage clustering for geographic point clouds",
	Long: `Covers a set of lat/lon points with a minimal number of fixed-radius
scan circles using an R-Tree backed greedy set-cover heuristic.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a synthetic point set",
	Long:  `Generate random geographical points grouped into small disks and save them to a point file.`,
	Run:   runGen,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster a point set",
	Long:  `Load points from a point file or PostGIS area, run the clusterer and report the chosen centers.`,
	Run:   runCluster,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the clustering pipeline",
	Long:  `Drive synthetic point clouds of increasing size through the pipeline and report per-phase timings.`,
	Run:   runBench,
}

var (
	numPoints   int
	numDisks    int
	diskRadius  float64
	seed        int64
	modeName    string
	radius      float64
	minPoints   int
	maxClusters int
	splitLevel  int
	numWorkers  int
	outFile     string

	pgHost     string
	pgPort     int
	pgUser     string
	pgPassword string
	pgDatabase string
	pgArea     string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&pointsFile, "file", "f", "scan_points.gob", "Point file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	genCmd.Flags().IntVarP(&numPoints, "points", "p", 100000, "Number of points to generate")
	genCmd.Flags().IntVarP(&numDisks, "disks", "d", 0, "Group points into this many small disks (0 = scattered)")
	genCmd.Flags().Float64Var(&diskRadius, "disk-radius", 50, "Disk radius in meters when grouping")
	genCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")

	runCmd.Flags().StringVarP(&modeName, "mode", "m", "balanced", "Cluster mode: fast, balanced, better, best")
	runCmd.Flags().Float64VarP(&radius, "radius", "r", cluster.DefaultRadius, "Scan radius in meters")
	runCmd.Flags().IntVar(&minPoints, "min-points", 1, "Minimum points a cluster must cover")
	runCmd.Flags().IntVar(&maxClusters, "max-clusters", 0, "Maximum clusters to select (0 = unlimited)")
	runCmd.Flags().IntVar(&splitLevel, "split-level", 1, "S2 cell level for sharded runs (1 = no sharding)")
	runCmd.Flags().IntVarP(&numWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	runCmd.Flags().StringVarP(&outFile, "out", "o", "", "Write chosen centers to this point file")
	runCmd.Flags().StringVar(&pgHost, "pg-host", "", "PostGIS host (enables database mode)")
	runCmd.Flags().IntVar(&pgPort, "pg-port", 5432, "PostGIS port")
	runCmd.Flags().StringVar(&pgUser, "pg-user", "postgres", "PostGIS user")
	runCmd.Flags().StringVar(&pgPassword, "pg-password", "", "PostGIS password")
	runCmd.Flags().StringVar(&pgDatabase, "pg-database", "geodb", "PostGIS database")
	runCmd.Flags().StringVar(&pgArea, "pg-area", "default", "Area name for PostGIS points and waypoints")

	benchCmd.Flags().StringVarP(&modeName, "mode", "m", "fast", "Cluster mode: fast, balanced, better, best")
	benchCmd.Flags().Float64VarP(&radius, "radius", "r", cluster.DefaultRadius, "Scan radius in meters")
	benchCmd.Flags().IntVarP(&numWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")

	rootCmd.AddCommand(genCmd, runCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGen(cmd *cobra.Command, args []string) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	fmt.Printf("Generating %d points (seed %d)...\n", numPoints, seed)

	var points []models.Location
	if numDisks > 0 {
		points = generateDiskPoints(numPoints, numDisks, diskRadius, seed)
	} else {
		points = generateScatteredPoints(numPoints, seed)
	}

	if err := models.SavePoints(pointsFile, points); err != nil {
		log.Fatalf("Failed to save points: %v", err)
	}
	fmt.Printf("Saved %d points to %s\n", len(points), pointsFile)
}

func runCluster(cmd *cobra.Command, args []string) {
	mode, err := cluster.ParseMode(modeName)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}

	var store *postgis.Store
	var points []models.Location
	if pgHost != "" {
		store, err = postgis.NewStore(pgHost, pgUser, pgPassword, pgDatabase, pgPort)
		if err != nil {
			log.Fatalf("Failed to connect to PostGIS: %v", err)
		}
		defer store.Close()
		points, err = store.LoadPoints(pgArea)
		if err != nil {
			log.Fatalf("Failed to load points from PostGIS: %v", err)
		}
		fmt.Printf("Loaded %d points from PostGIS area %q\n", len(points), pgArea)
	} else {
		points, err = models.LoadPoints(pointsFile)
		if err != nil {
			log.Fatalf("Failed to load points: %v", err)
		}
		fmt.Printf("Loaded %d points from %s\n", len(points), pointsFile)
	}

	cfg := cluster.Config{
		Mode:        mode,
		Radius:      radius,
		MinPoints:   minPoints,
		MaxClusters: maxClusters,
		SplitLevel:  splitLevel,
		Workers:     numWorkers,
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		cfg.Progress = os.Stdout
	}

	clusterer, err := cluster.New(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	centers, stats := clusterer.RunWithStats(points)

	fmt.Printf("\nClustering Results:\n")
	fmt.Printf("Input points:     %d\n", stats.InputPoints)
	fmt.Printf("Candidates:       %d\n", stats.Candidates)
	fmt.Printf("Before dedupe:    %d\n", stats.SelectedBeforeDedupe)
	fmt.Printf("Chosen centers:   %d\n", stats.SelectedAfterDedupe)
	fmt.Printf("Total time:       %.2fs\n", stats.TotalSeconds)
	if stats.Shards == 1 {
		fmt.Printf("  index:          %.2fs\n", stats.IndexSeconds)
		fmt.Printf("  candidates:     %.2fs\n", stats.CandidateSeconds)
		fmt.Printf("  coverage:       %.2fs\n", stats.BuildSeconds)
		fmt.Printf("  selection:      %.2fs\n", stats.SelectSeconds)
		fmt.Printf("  dedupe:         %.2fs\n", stats.DedupeSeconds)
	} else {
		fmt.Printf("Shards:           %d\n", stats.Shards)
	}

	if outFile != "" {
		if err := models.SavePoints(outFile, centers); err != nil {
			log.Fatalf("Failed to save centers: %v", err)
		}
		fmt.Printf("Centers saved to %s\n", outFile)
	}

	if store != nil {
		covered := coverageCounts(points, centers, radius)
		if err := store.SaveWaypoints(pgArea, centers, covered); err != nil {
			log.Fatalf("Failed to save waypoints: %v", err)
		}
		fmt.Printf("Waypoints saved to PostGIS area %q\n", pgArea)
	}
}

func runBench(cmd *cobra.Command, args []string) {
	mode, err := cluster.ParseMode(modeName)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}

	sizes := []int{1000, 5000, 20000}
	for _, n := range sizes {
		points := generateDiskPoints(n, n/5, 50, 42)

		clusterer, err := cluster.New(cluster.Config{
			Mode:      mode,
			Radius:    radius,
			MinPoints: 3,
			Workers:   numWorkers,
		})
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		centers, stats := clusterer.RunWithStats(points)

		fmt.Printf("\n%d points (%s):\n", n, mode)
		fmt.Printf("  candidates: %d, centers: %d\n", stats.Candidates, len(centers))
		fmt.Printf("  index %.2fs | candidates %.2fs | coverage %.2fs | selection %.2fs | dedupe %.2fs\n",
			stats.IndexSeconds, stats.CandidateSeconds, stats.BuildSeconds,
			stats.SelectSeconds, stats.DedupeSeconds)
		fmt.Printf("  total %.2fs (%.0f points/s)\n",
			stats.TotalSeconds, float64(n)/stats.TotalSeconds)
	}
}

// coverageCounts recomputes how many input points each chosen center
// covers, for the waypoint records.
func coverageCounts(points, centers []models.Location, radiusMeters float64) []int {
	index := rtree.NewPointIndex(models.Dedupe(points), radiusMeters)
	counts := make([]int, len(centers))
	for i, c := range centers {
		counts[i] = len(index.Within(c))
	}
	return counts
}

// generateScatteredPoints spreads points across population-centre
// shaped regions, in parallel.
func generateScatteredPoints(n int, seed int64) []models.Location {
	points := make([]models.Location, n)

	numWorkers := runtime.NumCPU()
	batchSize := n / numWorkers
	if batchSize < 1 {
		batchSize = 1
		numWorkers = n
	}
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		startIdx := w * batchSize
		endIdx := startIdx + batchSize
		if w == numWorkers-1 {
			endIdx = n
		}

		go func(start, end int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(start)))

			for i := start; i < end; i++ {
				var lat, lon float64

				switch r.Intn(5) {
				case 0: // North America
					lat = r.Float64()*30 + 30
					lon = r.Float64()*60 - 120
				case 1: // Europe
					lat = r.Float64()*20 + 40
					lon = r.Float64()*40 - 10
				case 2: // Asia
					lat = r.Float64()*40 + 20
					lon = r.Float64()*80 + 60
				case 3: // South America
					lat = r.Float64()*40 - 50
					lon = r.Float64()*30 - 80
				default: // Random
					lat = r.Float64()*180 - 90
					lon = r.Float64()*360 - 180
				}

				points[i] = models.Location{Lat: lat, Lon: lon}
			}
		}(startIdx, endIdx)
	}

	wg.Wait()
	return points
}

// generateDiskPoints groups n points into small disks scattered over a
// city-sized area, the shape a real scan workload has.
func generateDiskPoints(n, disks int, diskRadiusMeters float64, seed int64) []models.Location {
	r := rand.New(rand.NewSource(seed))
	points := make([]models.Location, 0, n)

	// ~1 degree of latitude is 111 km
	diskDeg := diskRadiusMeters / 111000.0

	for d := 0; d < disks; d++ {
		centerLat := 40.0 + r.Float64()*0.5
		centerLon := -75.0 + r.Float64()*0.5
		perDisk := n / disks
		if d == disks-1 {
			perDisk = n - len(points)
		}
		for i := 0; i < perDisk; i++ {
			points = append(points, models.Location{
				Lat: centerLat + (r.Float64()*2-1)*diskDeg,
				Lon: centerLon + (r.Float64()*2-1)*diskDeg,
			})
		}
	}
	return points
}
