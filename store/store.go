// Package store persists junction telemetry, violations and emergency
// vehicle intervals to a local SQLite database.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Violation is a persisted violation record.
type Violation struct {
	ID        string    `json:"id"`
	Junction  int       `json:"junction_id"`
	TrackID   int       `json:"track_id"`
	Type      string    `json:"type"`
	Plate     string    `json:"plate,omitempty"`
	SpeedKmh  float64   `json:"speed_kmh,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Emergency is a persisted emergency vehicle interval.
type Emergency struct {
	ID        string    `json:"id"`
	Junction  int       `json:"junction_id"`
	TrackID   int       `json:"track_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Active    bool      `json:"active"`
}

// Open opens (creating if necessary) the database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS traffic_log (
			junction_id INTEGER NOT NULL,
			vehicle_count INTEGER NOT NULL,
			congestion_level TEXT NOT NULL,
			avg_speed_kmh REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS violations (
			id TEXT PRIMARY KEY,
			junction_id INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			plate TEXT,
			speed_kmh REAL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS emergency_vehicles (
			id TEXT PRIMARY KEY,
			junction_id INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

// LogTraffic records one telemetry sample.
func (s *Store) LogTraffic(junction, vehicleCount int, congestionLevel string, avgSpeedKmh float64) error {
	_, err := s.db.Exec(
		`INSERT INTO traffic_log (junction_id, vehicle_count, congestion_level, avg_speed_kmh) VALUES (?, ?, ?, ?)`,
		junction, vehicleCount, congestionLevel, avgSpeedKmh,
	)
	return errors.Wrap(err, "log traffic")
}

// LogViolation records a violation and returns its id.
func (s *Store) LogViolation(junction, trackID int, violationType, plate string, speedKmh float64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO violations (id, junction_id, track_id, type, plate, speed_kmh) VALUES (?, ?, ?, ?, ?, ?)`,
		id, junction, trackID, violationType, plate, speedKmh,
	)
	if err != nil {
		return "", errors.Wrap(err, "log violation")
	}
	return id, nil
}

// RecentViolations returns up to limit violations for the junction, newest
// first.
func (s *Store) RecentViolations(junction, limit int) ([]Violation, error) {
	rows, err := s.db.Query(
		`SELECT id, junction_id, track_id, type, COALESCE(plate, ''), COALESCE(speed_kmh, 0), created_at
		 FROM violations WHERE junction_id = ? ORDER BY created_at DESC LIMIT ?`,
		junction, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query violations")
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.Junction, &v.TrackID, &v.Type, &v.Plate, &v.SpeedKmh, &v.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan violation")
		}
		out = append(out, v)
	}
	return out, errors.Wrap(rows.Err(), "iterate violations")
}

// OpenEmergency opens a new emergency interval and returns its id.
func (s *Store) OpenEmergency(junction, trackID int, seen time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO emergency_vehicles (id, junction_id, track_id, first_seen, last_seen, active) VALUES (?, ?, ?, ?, ?, 1)`,
		id, junction, trackID, seen, seen,
	)
	if err != nil {
		return "", errors.Wrap(err, "open emergency")
	}
	return id, nil
}

// TouchEmergency refreshes the last-seen timestamp of an open interval.
func (s *Store) TouchEmergency(id string, seen time.Time) error {
	_, err := s.db.Exec(
		`UPDATE emergency_vehicles SET last_seen = ? WHERE id = ? AND active = 1`,
		seen, id,
	)
	return errors.Wrap(err, "touch emergency")
}

// CloseEmergency marks an interval inactive.
func (s *Store) CloseEmergency(id string) error {
	_, err := s.db.Exec(
		`UPDATE emergency_vehicles SET active = 0 WHERE id = ?`, id,
	)
	return errors.Wrap(err, "close emergency")
}

// ActiveEmergencies returns the open intervals for the junction.
func (s *Store) ActiveEmergencies(junction int) ([]Emergency, error) {
	rows, err := s.db.Query(
		`SELECT id, junction_id, track_id, first_seen, last_seen, active
		 FROM emergency_vehicles WHERE junction_id = ? AND active = 1 ORDER BY first_seen`,
		junction,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query emergencies")
	}
	defer rows.Close()

	var out []Emergency
	for rows.Next() {
		var e Emergency
		if err := rows.Scan(&e.ID, &e.Junction, &e.TrackID, &e.FirstSeen, &e.LastSeen, &e.Active); err != nil {
			return nil, errors.Wrap(err, "scan emergency")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate emergencies")
}

// TrafficSampleCount returns the number of telemetry rows for the junction.
func (s *Store) TrafficSampleCount(junction int) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM traffic_log WHERE junction_id = ?`, junction,
	).Scan(&n)
	return n, errors.Wrap(err, "count traffic samples")
}
