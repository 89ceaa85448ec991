package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/kass/go-geo-cluster/pkg/cluster"
	"github.com/kass/go-geo-cluster/pkg/geomath"
	"github.com/kass/go-geo-cluster/pkg/models"
	"github.com/kass/go-geo-cluster/pkg/postgis"
)

// Config structure for YAML configuration
type Config struct {
	Demo struct {
		Points     int     `yaml:"points"`
		Disks      int     `yaml:"disks"`
		DiskRadius float64 `yaml:"disk_radius"`
		Mode       string  `yaml:"mode"`
		Radius     float64 `yaml:"radius"`
		MinPoints  int     `yaml:"min_points"`
		SplitLevel int     `yaml:"split_level"`
	} `yaml:"demo"`
	PostGIS struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		Area     string `yaml:"area"`
	} `yaml:"postgis"`
}

var (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"

	config Config
)

func init() {
	// Disable colors if not in a terminal
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		colorReset = ""
		colorGreen = ""
		colorYellow = ""
		colorPurple = ""
		colorCyan = ""
		colorBold = ""
	}
}

func printTitle(title string) {
	fmt.Printf("\n%s%s🌍 %s%s\n", colorBold, colorPurple, title, colorReset)
	fmt.Println(strings.Repeat("=", 60))
}

func printSubtitle(subtitle string) {
	fmt.Printf("\n%s%s%s%s\n", colorBold, colorCyan, subtitle, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, message, colorReset)
}

func printStat(label string, value interface{}) {
	fmt.Printf("  %s%s:%s %s%v%s\n", colorBold, label, colorReset, colorYellow, value, colorReset)
}

func loadConfig() error {
	// Try to load config.yaml
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		// If config.yaml doesn't exist, try config.yaml.example
		data, err = os.ReadFile("config.yaml.example")
		if err != nil {
			return fmt.Errorf("config.yaml not found. Please copy config.yaml.example to config.yaml")
		}
		fmt.Printf("%sUsing config.yaml.example (copy to config.yaml for custom settings)%s\n", colorYellow, colorReset)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Demo.Points == 0 {
		config.Demo.Points = 5000
	}
	if config.Demo.Disks == 0 {
		config.Demo.Disks = 500
	}
	if config.Demo.DiskRadius == 0 {
		config.Demo.DiskRadius = 50
	}
	if config.Demo.Mode == "" {
		config.Demo.Mode = "balanced"
	}

	return nil
}

func main() {
	if err := loadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printTitle("Greedy Coverage Clustering Demo")

	printSubtitle("1. Generating synthetic scan points")
	points := generatePoints(config.Demo.Points, config.Demo.Disks, config.Demo.DiskRadius)
	printStat("Points", len(points))
	printStat("Disks", config.Demo.Disks)

	printSubtitle("2. Running the clusterer")
	mode, err := cluster.ParseMode(config.Demo.Mode)
	if err != nil {
		log.Fatalf("Invalid mode in config: %v", err)
	}

	clusterer, err := cluster.New(cluster.Config{
		Mode:       mode,
		Radius:     config.Demo.Radius,
		MinPoints:  config.Demo.MinPoints,
		SplitLevel: config.Demo.SplitLevel,
		Progress:   os.Stdout,
	})
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	start := time.Now()
	centers, stats := clusterer.RunWithStats(points)
	fmt.Println()
	printSuccess(fmt.Sprintf("Clustered in %v", time.Since(start).Round(time.Millisecond)))

	printStat("Candidates", stats.Candidates)
	printStat("Before dedupe", stats.SelectedBeforeDedupe)
	printStat("Chosen centers", stats.SelectedAfterDedupe)
	reduction := 100 * (1 - float64(len(centers))/float64(len(points)))
	printStat("Waypoint reduction", fmt.Sprintf("%.1f%%", reduction))

	printSubtitle("3. Verifying coverage")
	covered := 0
	cfg := clusterer.Config()
	for _, p := range points {
		for _, c := range centers {
			if geomath.Haversine(p, c) <= cfg.Radius {
				covered++
				break
			}
		}
	}
	printStat("Covered points", fmt.Sprintf("%d / %d", covered, len(points)))

	if config.PostGIS.Enabled {
		printSubtitle("4. Storing waypoints in PostGIS")
		store, err := postgis.NewStore(
			config.PostGIS.Host, config.PostGIS.User,
			config.PostGIS.Password, config.PostGIS.Database,
			config.PostGIS.Port)
		if err != nil {
			log.Fatalf("Failed to connect to PostGIS: %v", err)
		}
		defer store.Close()

		if err := store.InitSchema(); err != nil {
			log.Fatalf("Failed to init schema: %v", err)
		}
		if err := store.InsertPoints(config.PostGIS.Area, points); err != nil {
			log.Fatalf("Failed to insert points: %v", err)
		}
		if err := store.SaveWaypoints(config.PostGIS.Area, centers, nil); err != nil {
			log.Fatalf("Failed to save waypoints: %v", err)
		}
		printSuccess(fmt.Sprintf("Stored %d points and %d waypoints in area %q",
			len(points), len(centers), config.PostGIS.Area))
	}

	fmt.Println()
}

func generatePoints(n, disks int, diskRadiusMeters float64) []models.Location {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	points := make([]models.Location, 0, n)
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
