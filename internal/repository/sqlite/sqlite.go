// Package sqlite stores snapshots in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smartcity/mobility/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout sorts lexicographically in UTC
const timeLayout = "2006-01-02T15:04:05.000000Z"

// historyLimit caps rows returned by history queries
const historyLimit = 100

// DB implements domain.SnapshotRepository on SQLite
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex // SQLite allows one writer at a time
	now     func() time.Time
}

// Connect opens a SQLite database with WAL mode and ensures the schema
func Connect(ctx context.Context, dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Connected to SQLite database: %s", dbPath)
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates tables if they don't exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// SaveCategorySnapshot persists one category result
func (db *DB) SaveCategorySnapshot(ctx context.Context, snap domain.CategorySnapshot) error {
	sets, err := json.Marshal(snap.Sets)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode %s sets: %w", snap.Category, err)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO category_snapshots
			(cycle_id, category, lat, lon, option_count, sets_json, polled_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.CycleID.String(), string(snap.Category), snap.Location.Latitude, snap.Location.Longitude,
		snap.OptionCount(), string(sets), formatTime(snap.PolledAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save %s snapshot: %w", snap.Category, err)
	}
	return nil
}

// SaveWeatherSnapshot persists a weather reading
func (db *DB) SaveWeatherSnapshot(ctx context.Context, w domain.WeatherSnapshot) error {
	values, err := json.Marshal(w.Values)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode weather values: %w", err)
	}

	var lat, lon *float64
	if w.Location != nil {
		lat, lon = &w.Location.Latitude, &w.Location.Longitude
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO weather_snapshots
			(station_id, name, lat, lon, values_json, is_mock, observed_at_utc, saved_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.StationID, w.Name, lat, lon, string(values), w.IsMock,
		formatTime(w.ObservedAt), formatTime(db.now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save weather snapshot: %w", err)
	}
	return nil
}

// GetCategoryHistory returns snapshots of category polled within [from, to], newest first
func (db *DB) GetCategoryHistory(ctx context.Context, category domain.Category, from, to time.Time) ([]domain.CategorySnapshot, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT cycle_id, category, lat, lon, sets_json, polled_at_utc
		 FROM category_snapshots
		 WHERE category = ? AND polled_at_utc BETWEEN ? AND ?
		 ORDER BY polled_at_utc DESC, id DESC
		 LIMIT ?`,
		string(category), formatTime(from), formatTime(to), historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query %s snapshots: %w", category, err)
	}
	defer rows.Close()

	var results []domain.CategorySnapshot
	for rows.Next() {
		var (
			s                      domain.CategorySnapshot
			cycleID, cat, sets, at string
		)
		if err := rows.Scan(&cycleID, &cat, &s.Location.Latitude, &s.Location.Longitude, &sets, &at); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan snapshot row: %w", err)
		}
		if s.CycleID, err = uuid.Parse(cycleID); err != nil {
			return nil, fmt.Errorf("sqlite: invalid cycle id %q: %w", cycleID, err)
		}
		if s.PolledAt, err = parseTime(at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sets), &s.Sets); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode snapshot sets: %w", err)
		}
		s.Category = domain.Category(cat)
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate snapshots: %w", err)
	}
	return results, nil
}

// GetHistoricalWeather returns readings saved within [from, to], newest first
func (db *DB) GetHistoricalWeather(ctx context.Context, from, to time.Time) ([]domain.WeatherSnapshot, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT station_id, name, lat, lon, values_json, is_mock, observed_at_utc
		 FROM weather_snapshots
		 WHERE saved_at_utc BETWEEN ? AND ?
		 ORDER BY saved_at_utc DESC, id DESC
		 LIMIT ?`,
		formatTime(from), formatTime(to), historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query weather data: %w", err)
	}
	defer rows.Close()

	var results []domain.WeatherSnapshot
	for rows.Next() {
		var (
			w              domain.WeatherSnapshot
			lat, lon       sql.NullFloat64
			values, observ string
		)
		if err := rows.Scan(&w.StationID, &w.Name, &lat, &lon, &values, &w.IsMock, &observ); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan weather row: %w", err)
		}
		if lat.Valid && lon.Valid {
			w.Location = &domain.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		if w.ObservedAt, err = parseTime(observ); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(values), &w.Values); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode weather values: %w", err)
		}
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate weather rows: %w", err)
	}
	return results, nil
}

// Cleanup deletes data older than the retention window
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	cutoff := formatTime(db.now().Add(-retention))

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	queries := []struct {
		name  string
		query string
	}{
		{name: "category_snapshots", query: "DELETE FROM category_snapshots WHERE polled_at_utc < ?"},
		{name: "weather_snapshots", query: "DELETE FROM weather_snapshots WHERE saved_at_utc < ?"},
	}

	totalDeleted := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("sqlite: failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		log.Printf("Cleanup: deleted %d records older than %v", totalDeleted, retention)
	}
	return nil
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
