// Package postgis persists scan points and cluster waypoints in a
// PostGIS-enabled Postgres database. It is an optional adapter: the
// clustering core itself is in-process and stateless.
package postgis

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kass/go-geo-cluster/pkg/models"
)

type Store struct {
	db *sql.DB
}

// NewStore creates a new PostGIS connection
func NewStore(host, user, password, dbname string, port int) (*Store, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// InitSchema creates the necessary tables and indexes
func (s *Store) InitSchema() error {
	queries := []string{
		// Enable PostGIS extension
		`CREATE EXTENSION IF NOT EXISTS postgis;`,

		`CREATE TABLE IF NOT EXISTS scan_points (
			id SERIAL PRIMARY KEY,
			area TEXT NOT NULL,
			location GEOMETRY(POINT, 4326)
		);`,

		`CREATE TABLE IF NOT EXISTS scan_waypoints (
			id SERIAL PRIMARY KEY,
			area TEXT NOT NULL,
			location GEOMETRY(POINT, 4326),
			covered INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_scan_points_location ON scan_points USING GIST(location);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_points_area ON scan_points(area);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_waypoints_area ON scan_waypoints(area);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// InsertPoints inserts scan points for an area in batches for better performance
func (s *Store) InsertPoints(area string, points []models.Location) error {
	const batchSize = 10000

	stmt, err := s.db.Prepare(`
		INSERT INTO scan_points (area, location)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStmt := tx.Stmt(stmt)

	for i := 0; i < len(points); i++ {
		point := points[i]
		_, err := txStmt.Exec(area, point.Lon, point.Lat)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert point %d: %w", i, err)
		}

		// Commit batch
		if (i+1)%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit batch: %w", err)
			}

			tx, err = s.db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.Stmt(stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final batch: %w", err)
	}

	return nil
}

// LoadPoints returns all scan points stored for an area
func (s *Store) LoadPoints(area string) ([]models.Location, error) {
	query := `
		SELECT ST_Y(location) as lat, ST_X(location) as lon
		FROM scan_points
		WHERE area = $1
	`

	rows, err := s.db.Query(query, area)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []models.Location
	for rows.Next() {
		var lat, lon float64

		if err := rows.Scan(&lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		results = append(results, models.Location{Lat: lat, Lon: lon})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// SaveWaypoints replaces the stored waypoints for an area with the
// given centers and their coverage counts
func (s *Store) SaveWaypoints(area string, centers []models.Location, covered []int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM scan_waypoints WHERE area = $1`, area); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear waypoints: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO scan_waypoints (area, location, covered)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range centers {
		n := 0
		if i < len(covered) {
			n = covered[i]
		}
		if _, err := stmt.Exec(area, c.Lon, c.Lat, n); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert waypoint %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit waypoints: %w", err)
	}

	return nil
}

// CountPoints returns the number of scan points stored for an area
func (s *Store) CountPoints(area string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM scan_points WHERE area = $1", area).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
