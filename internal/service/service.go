package service

import (
	"context"

	"github.com/smartcity/mobility/internal/domain"
)

// SnapshotRepository is re-exported from domain for convenience
type SnapshotRepository = domain.SnapshotRepository

// MobilityFetcher fetches the options of one category
type MobilityFetcher interface {
	FetchMobility(ctx context.Context, category domain.Category, lat, lon float64, maxDetailItems int) ([]domain.CategoryResponseSet, error)
}

// WeatherFetcher fetches observed weather readings
type WeatherFetcher interface {
	GetWeatherObserved(ctx context.Context, limit int, query map[string]string) ([]domain.WeatherSnapshot, error)
}
