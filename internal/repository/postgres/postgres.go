package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/mobility/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// historyLimit caps rows returned by history queries
const historyLimit = 100

// PostgresRepository implements domain.SnapshotRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates tables if they don't exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	log.Println("Database schema ensured")
	return nil
}

// SaveCategorySnapshot persists one category result to PostgreSQL
func (r *PostgresRepository) SaveCategorySnapshot(ctx context.Context, snap domain.CategorySnapshot) error {
	query := `
		INSERT INTO category_snapshots (
			cycle_id, category, lat, lon, option_count, sets, polled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	sets, err := json.Marshal(snap.Sets)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode %s sets: %w", snap.Category, err)
	}

	_, err = r.pool.Exec(ctx, query,
		snap.CycleID.String(), string(snap.Category), snap.Location.Latitude, snap.Location.Longitude,
		snap.OptionCount(), sets, snap.PolledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save %s snapshot: %w", snap.Category, err)
	}

	return nil
}

// SaveWeatherSnapshot persists a weather reading to PostgreSQL
func (r *PostgresRepository) SaveWeatherSnapshot(ctx context.Context, w domain.WeatherSnapshot) error {
	query := `
		INSERT INTO weather_snapshots (
			station_id, name, lat, lon, temperature, precipitation,
			measurements, is_mock, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	values, err := json.Marshal(w.Values)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode weather values: %w", err)
	}

	var lat, lon, temp, rain *float64
	if w.Location != nil {
		lat, lon = &w.Location.Latitude, &w.Location.Longitude
	}
	if t, ok := w.Temperature(); ok {
		temp = &t
	}
	if p, ok := w.Precipitation(); ok {
		rain = &p
	}

	_, err = r.pool.Exec(ctx, query,
		w.StationID, w.Name, lat, lon, temp, rain,
		values, w.IsMock, w.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save weather snapshot: %w", err)
	}

	return nil
}

// GetCategoryHistory retrieves category snapshots from PostgreSQL
func (r *PostgresRepository) GetCategoryHistory(ctx context.Context, category domain.Category, from, to time.Time) ([]domain.CategorySnapshot, error) {
	query := `
		SELECT cycle_id::text, category, lat, lon, sets, polled_at
		FROM category_snapshots
		WHERE category = $1 AND polled_at BETWEEN $2 AND $3
		ORDER BY polled_at DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, string(category), from, to, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query %s snapshots: %w", category, err)
	}
	defer rows.Close()

	var results []domain.CategorySnapshot
	for rows.Next() {
		var (
			s       domain.CategorySnapshot
			cycleID string
			cat     string
			sets    []byte
		)
		if err := rows.Scan(&cycleID, &cat, &s.Location.Latitude, &s.Location.Longitude, &sets, &s.PolledAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan snapshot row: %w", err)
		}
		if s.CycleID, err = uuid.Parse(cycleID); err != nil {
			return nil, fmt.Errorf("postgres: invalid cycle id %q: %w", cycleID, err)
		}
		if err := json.Unmarshal(sets, &s.Sets); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode snapshot sets: %w", err)
		}
		s.Category = domain.Category(cat)
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate snapshots: %w", err)
	}

	return results, nil
}

// GetHistoricalWeather retrieves weather history from PostgreSQL
func (r *PostgresRepository) GetHistoricalWeather(ctx context.Context, from, to time.Time) ([]domain.WeatherSnapshot, error) {
	query := `
		SELECT station_id, name, lat, lon, measurements, is_mock, observed_at
		FROM weather_snapshots
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, from, to, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query weather data: %w", err)
	}
	defer rows.Close()

	var results []domain.WeatherSnapshot
	for rows.Next() {
		var (
			w        domain.WeatherSnapshot
			lat, lon *float64
			values   []byte
		)
		if err := rows.Scan(&w.StationID, &w.Name, &lat, &lon, &values, &w.IsMock, &w.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan weather row: %w", err)
		}
		if lat != nil && lon != nil {
			w.Location = &domain.GeoPoint{Latitude: *lat, Longitude: *lon}
		}
		if err := json.Unmarshal(values, &w.Values); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode weather values: %w", err)
		}
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate weather rows: %w", err)
	}

	return results, nil
}

// Cleanup deletes snapshots older than the retention window
func (r *PostgresRepository) Cleanup(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	queries := []struct {
		name  string
		query string
	}{
		{name: "category_snapshots", query: "DELETE FROM category_snapshots WHERE polled_at < $1"},
		{name: "weather_snapshots", query: "DELETE FROM weather_snapshots WHERE created_at < $1"},
	}

	var total int64
	for _, q := range queries {
		tag, err := r.pool.Exec(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("postgres: failed to cleanup %s: %w", q.name, err)
		}
		total += tag.RowsAffected()
	}

	if total > 0 {
		log.Printf("Cleanup: deleted %d snapshots older than %v", total, retention)
	}
	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
