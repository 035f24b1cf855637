package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartcity/mobility/internal/domain"
)

var tracer = otel.Tracer("github.com/smartcity/mobility/internal/service")

// CycleSink receives results of a refresh cycle as they arrive
type CycleSink interface {
	ApplyCategory(category domain.Category, sets []domain.CategoryResponseSet)
	ApplyWeather(readings []domain.WeatherSnapshot)
	SetState(state domain.LoadingState)
}

// CycleReport summarizes one aggregation cycle
type CycleReport struct {
	ID         uuid.UUID
	Location   domain.GeoPoint
	StartedAt  time.Time
	Duration   time.Duration
	Applied    []domain.Category
	Failures   map[domain.Category]error
	WeatherErr error
	Canceled   bool
	State      domain.LoadingState
}

// OK reports whether every request of the cycle succeeded
func (r CycleReport) OK() bool {
	return len(r.Failures) == 0 && r.WeatherErr == nil && !r.Canceled
}

// Orchestrator issues one request per category plus one weather request
type Orchestrator struct {
	mobility       MobilityFetcher
	weather        WeatherFetcher
	repo           SnapshotRepository
	maxDetailItems int
	categories     []domain.Category

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewOrchestrator creates a new fetch orchestrator
func NewOrchestrator(
	mobility MobilityFetcher,
	weather WeatherFetcher,
	repo SnapshotRepository,
	maxDetailItems int,
) *Orchestrator {
	return &Orchestrator{
		mobility:       mobility,
		weather:        weather,
		repo:           repo,
		maxDetailItems: maxDetailItems,
		categories:     domain.AllCategories(),
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (o *Orchestrator) WaitBackground() {
	o.wgBg.Wait()
}

// FetchAll runs one aggregation cycle for loc. Results stream into sink as
// each request completes; a failing request never cancels its siblings.
// FetchAll returns once every request has resolved.
func (o *Orchestrator) FetchAll(ctx context.Context, loc domain.GeoPoint, sink CycleSink) CycleReport {
	report := CycleReport{
		ID:        uuid.New(),
		Location:  loc,
		StartedAt: time.Now(),
		Failures:  make(map[domain.Category]error),
	}

	ctx, span := tracer.Start(ctx, "mobility.cycle", trace.WithAttributes(
		attribute.String("cycle.id", report.ID.String()),
		attribute.Float64("location.lat", loc.Latitude),
		attribute.Float64("location.lon", loc.Longitude),
	))
	defer span.End()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	// Fetch every category concurrently
	for _, category := range o.categories {
		wg.Add(1)
		go func(category domain.Category) {
			defer wg.Done()

			sets, err := o.fetchCategory(ctx, category, loc)
			if ctx.Err() != nil {
				return
			}

			mu.Lock()
			if err != nil {
				report.Failures[category] = err
			} else {
				report.Applied = append(report.Applied, category)
			}
			mu.Unlock()

			if err != nil {
				logFetchError(category, err)
				sink.SetState(domain.Failed(domain.ErrorMobilityFetch))
				return
			}

			sink.ApplyCategory(category, sets)
			o.persistCategory(report.ID, category, loc, sets)
		}(category)
	}

	// Fetch weather concurrently
	wg.Add(1)
	go func() {
		defer wg.Done()

		readings, err := o.fetchWeather(ctx, loc)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			mu.Lock()
			report.WeatherErr = err
			mu.Unlock()
			log.Printf("Weather fetch error: %v", err)
			sink.SetState(domain.Failed(domain.ErrorWeatherFetch))
			return
		}

		sink.ApplyWeather(readings)
		if len(readings) > 0 {
			o.persistWeather(readings[0])
		}
	}()

	wg.Wait()
	report.Duration = time.Since(report.StartedAt)

	if ctx.Err() != nil {
		report.Canceled = true
		span.SetStatus(codes.Error, "canceled")
		log.Printf("Cycle %s: canceled after %v", report.ID, report.Duration)
		return report
	}

	// Failures raced each other above, settle on one final state
	switch {
	case len(report.Failures) > 0:
		report.State = domain.Failed(domain.ErrorMobilityFetch)
	case report.WeatherErr != nil:
		report.State = domain.Failed(domain.ErrorWeatherFetch)
	default:
		report.State = domain.FinishedLoading()
	}
	sink.SetState(report.State)

	if !report.OK() {
		span.SetStatus(codes.Error, report.State.String())
	}
	span.SetAttributes(
		attribute.Int("cycle.applied", len(report.Applied)),
		attribute.Int("cycle.failed", len(report.Failures)),
	)

	log.Printf("Cycle %s: %d/%d categories applied, weather ok=%v, state=%s (%v)",
		report.ID, len(report.Applied), len(o.categories), report.WeatherErr == nil, report.State, report.Duration)

	return report
}

func (o *Orchestrator) fetchCategory(ctx context.Context, category domain.Category, loc domain.GeoPoint) ([]domain.CategoryResponseSet, error) {
	ctx, span := tracer.Start(ctx, "mobility.fetch", trace.WithAttributes(
		attribute.String("mobility.category", string(category)),
	))
	defer span.End()

	sets, err := o.mobility.FetchMobility(ctx, category, loc.Latitude, loc.Longitude, o.maxDetailItems)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	return sets, nil
}

func (o *Orchestrator) fetchWeather(ctx context.Context, loc domain.GeoPoint) ([]domain.WeatherSnapshot, error) {
	ctx, span := tracer.Start(ctx, "weather.fetch")
	defer span.End()

	readings, err := o.weather.GetWeatherObserved(ctx, 1, NearSphereQuery(loc.Latitude, loc.Longitude))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	return readings, nil
}

// persistCategory saves a category result asynchronously (tracked for graceful shutdown)
func (o *Orchestrator) persistCategory(cycleID uuid.UUID, category domain.Category, loc domain.GeoPoint, sets []domain.CategoryResponseSet) {
	if o.repo == nil {
		return
	}
	snap := domain.CategorySnapshot{
		CycleID:  cycleID,
		Category: category,
		Location: loc,
		Sets:     sets,
		PolledAt: time.Now().UTC(),
	}
	if snap.OptionCount() == 0 {
		return
	}

	o.wgBg.Add(1)
	go func() {
		defer o.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.repo.SaveCategorySnapshot(bgCtx, snap); err != nil {
			log.Printf("Failed to save %s snapshot: %v", category, err)
		}
	}()
}

func (o *Orchestrator) persistWeather(w domain.WeatherSnapshot) {
	if o.repo == nil {
		return
	}

	o.wgBg.Add(1)
	go func() {
		defer o.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.repo.SaveWeatherSnapshot(bgCtx, w); err != nil {
			log.Printf("Failed to save weather snapshot: %v", err)
		}
	}()
}

func logFetchError(category domain.Category, err error) {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		log.Printf("Mobility fetch error (%s): %v", category, err)
		return
	}
	switch fe.Kind {
	case domain.FetchNetwork:
		if fe.StatusCode != 0 {
			log.Printf("Mobility fetch error (%s): status %d: %s", category, fe.StatusCode, string(fe.Body))
		} else {
			log.Printf("Mobility fetch error (%s): network: %v", category, fe.Err)
		}
	case domain.FetchDecode:
		log.Printf("Mobility fetch error (%s): decode: %v", category, fe.Err)
	default:
		log.Printf("Mobility fetch error (%s): %v", category, err)
	}
}
