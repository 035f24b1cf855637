package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/mobility/internal/domain"
)

func snapshot(category domain.Category, at time.Time) domain.CategorySnapshot {
	return domain.CategorySnapshot{
		CycleID:  uuid.New(),
		Category: category,
		Sets:     []domain.CategoryResponseSet{{Category: category, Options: []domain.MobilityOption{{ID: "1"}}}},
		PolledAt: at,
	}
}

func TestCategoryHistory(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		repo.SaveCategorySnapshot(ctx, snapshot(domain.CategoryBus, base.Add(time.Duration(i)*time.Hour)))
	}
	repo.SaveCategorySnapshot(ctx, snapshot(domain.CategoryTaxi, base))

	tests := []struct {
		name     string
		category domain.Category
		from, to time.Time
		expected int
	}{
		{"all bus", domain.CategoryBus, base, base.Add(2 * time.Hour), 3},
		{"window", domain.CategoryBus, base.Add(30 * time.Minute), base.Add(90 * time.Minute), 1},
		{"taxi", domain.CategoryTaxi, base, base, 1},
		{"none", domain.CategoryTram, base, base.Add(time.Hour), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.GetCategoryHistory(ctx, tc.category, tc.from, tc.to)
			if err != nil {
				t.Fatalf("GetCategoryHistory() error = %v", err)
			}
			if len(got) != tc.expected {
				t.Errorf("got %d snapshots, expected %d", len(got), tc.expected)
			}
		})
	}

	got, _ := repo.GetCategoryHistory(ctx, domain.CategoryBus, base, base.Add(2*time.Hour))
	if !got[0].PolledAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("history should be newest first, got %v", got[0].PolledAt)
	}
}

func TestWeatherHistoryAndCleanup(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	repo.SaveWeatherSnapshot(ctx, domain.WeatherSnapshot{StationID: "old"})
	repo.SaveCategorySnapshot(ctx, snapshot(domain.CategoryBus, now))
	now = now.Add(25 * time.Hour)
	repo.SaveWeatherSnapshot(ctx, domain.WeatherSnapshot{StationID: "new"})
	repo.SaveCategorySnapshot(ctx, snapshot(domain.CategoryBus, now))

	history, _ := repo.GetHistoricalWeather(ctx, now.Add(-48*time.Hour), now)
	if len(history) != 2 || history[0].StationID != "new" {
		t.Fatalf("history = %+v", history)
	}

	if err := repo.Cleanup(ctx, 24*time.Hour); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	history, _ = repo.GetHistoricalWeather(ctx, now.Add(-48*time.Hour), now)
	if len(history) != 1 || history[0].StationID != "new" {
		t.Errorf("after cleanup history = %+v", history)
	}
	snaps, _ := repo.GetCategoryHistory(ctx, domain.CategoryBus, now.Add(-48*time.Hour), now)
	if len(snaps) != 1 {
		t.Errorf("after cleanup %d snapshots, expected 1", len(snaps))
	}
	if err := repo.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}
