package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CategorySnapshot is one persisted category result of a refresh cycle
type CategorySnapshot struct {
	CycleID  uuid.UUID             `json:"cycle_id"`
	Category Category              `json:"category"`
	Location GeoPoint              `json:"location"`
	Sets     []CategoryResponseSet `json:"sets"`
	PolledAt time.Time             `json:"polled_at"`
}

// OptionCount sums the options over all sets
func (s CategorySnapshot) OptionCount() int {
	n := 0
	for _, set := range s.Sets {
		n += len(set.Options)
	}
	return n
}

// SnapshotRepository defines the interface for snapshot persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type SnapshotRepository interface {
	// SaveCategorySnapshot persists one category result
	SaveCategorySnapshot(ctx context.Context, snap CategorySnapshot) error

	// SaveWeatherSnapshot persists a weather reading
	SaveWeatherSnapshot(ctx context.Context, w WeatherSnapshot) error

	// GetCategoryHistory retrieves category snapshots polled within [from, to]
	GetCategoryHistory(ctx context.Context, category Category, from, to time.Time) ([]CategorySnapshot, error)

	// GetHistoricalWeather retrieves weather history
	GetHistoricalWeather(ctx context.Context, from, to time.Time) ([]WeatherSnapshot, error)

	// Cleanup deletes data older than the retention window
	Cleanup(ctx context.Context, retention time.Duration) error

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
