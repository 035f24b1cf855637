// Package memory keeps snapshots in process memory for demo mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

// historyLimit caps entries returned by history queries
const historyLimit = 100

// MemoryRepository implements domain.SnapshotRepository without a database
type MemoryRepository struct {
	mu       sync.RWMutex
	snaps    []domain.CategorySnapshot
	readings []weatherEntry
	now      func() time.Time
}

type weatherEntry struct {
	reading domain.WeatherSnapshot
	savedAt time.Time
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

// SaveCategorySnapshot stores a copy of the snapshot
func (r *MemoryRepository) SaveCategorySnapshot(ctx context.Context, snap domain.CategorySnapshot) error {
	snap.Sets = append([]domain.CategoryResponseSet(nil), snap.Sets...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

// SaveWeatherSnapshot stores the reading with its save time
func (r *MemoryRepository) SaveWeatherSnapshot(ctx context.Context, w domain.WeatherSnapshot) error {
	w.Values = append([]domain.WeatherValue(nil), w.Values...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, weatherEntry{reading: w, savedAt: r.now()})
	return nil
}

// GetCategoryHistory returns snapshots of category polled within [from, to], newest first
func (r *MemoryRepository) GetCategoryHistory(ctx context.Context, category domain.Category, from, to time.Time) ([]domain.CategorySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.CategorySnapshot
	for _, s := range r.snaps {
		if s.Category == category && within(s.PolledAt, from, to) {
			results = append(results, s)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PolledAt.After(results[j].PolledAt)
	})
	if len(results) > historyLimit {
		results = results[:historyLimit]
	}
	return results, nil
}

// GetHistoricalWeather returns readings saved within [from, to], newest first
func (r *MemoryRepository) GetHistoricalWeather(ctx context.Context, from, to time.Time) ([]domain.WeatherSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.WeatherSnapshot
	for i := len(r.readings) - 1; i >= 0 && len(results) < historyLimit; i-- {
		if e := r.readings[i]; within(e.savedAt, from, to) {
			results = append(results, e.reading)
		}
	}
	return results, nil
}

// Cleanup drops entries older than the retention window
func (r *MemoryRepository) Cleanup(ctx context.Context, retention time.Duration) error {
	cutoff := r.now().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := r.snaps[:0]
	for _, s := range r.snaps {
		if !s.PolledAt.Before(cutoff) {
			snaps = append(snaps, s)
		}
	}
	r.snaps = snaps

	readings := r.readings[:0]
	for _, e := range r.readings {
		if !e.savedAt.Before(cutoff) {
			readings = append(readings, e)
		}
	}
	r.readings = readings
	return nil
}

// Health always succeeds
func (r *MemoryRepository) Health(ctx context.Context) error {
	return nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
