// Package screen binds one dashboard instance to its refresh timer,
// working set and observable streams.
package screen

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/mobility/internal/aggregator"
	"github.com/smartcity/mobility/internal/domain"
	"github.com/smartcity/mobility/internal/imagecache"
	"github.com/smartcity/mobility/internal/observe"
	"github.com/smartcity/mobility/internal/projector"
	"github.com/smartcity/mobility/internal/scheduler"
	"github.com/smartcity/mobility/internal/service"
)

// ErrClosed is returned by operations on a torn down screen
var ErrClosed = errors.New("screen: closed")

// Runner executes one aggregation cycle
type Runner interface {
	FetchAll(ctx context.Context, loc domain.GeoPoint, sink service.CycleSink) service.CycleReport
}

// Options configure a screen
type Options struct {
	Interval time.Duration
	// Fallback is used while the device has not reported a location
	Fallback *domain.GeoPoint
	// Location is an initial device location
	Location *domain.GeoPoint
	// Provider replaces the device location built from Fallback
	Provider service.LocationProvider
	// NoPrefetch registers icon URLs without downloading them
	NoPrefetch bool
	Now        func() time.Time
}

// Screen owns the state of one dashboard. It implements service.CycleSink.
type Screen struct {
	id        uuid.UUID
	createdAt time.Time
	now       func() time.Time

	runner     Runner
	icons      *imagecache.Cache
	noPrefetch bool
	location   service.LocationProvider
	working  *aggregator.WorkingSet
	proj     *projector.Projector
	sched    *scheduler.Scheduler

	states  *observe.Subject[domain.LoadingState]
	views   *observe.Subject[domain.AggregatedView]
	weather *observe.Subject[domain.WeatherSnapshot]
	models  *observe.Subject[projector.ScreenModel]

	ctx    context.Context
	cancel context.CancelFunc

	// lifeMu serializes timer transitions
	lifeMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	state      domain.LoadingState
	lastUsed   time.Time
	lastReport *service.CycleReport
}

// New creates a screen that has not appeared yet
func New(runner Runner, icons *imagecache.Cache, opts Options) *Screen {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	location := opts.Provider
	if location == nil {
		location = service.NewDeviceLocation(opts.Fallback)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Screen{
		id:         uuid.New(),
		createdAt:  now(),
		now:        now,
		runner:     runner,
		icons:      icons,
		noPrefetch: opts.NoPrefetch,
		location:   location,
		working:    aggregator.NewWorkingSet(),
		proj:       projector.New(),
		states:     observe.NewValueSubject(domain.Loading()),
		views:      observe.NewValueSubject(domain.AggregatedView{}),
		weather:    observe.NewSubject[domain.WeatherSnapshot](),
		models:     observe.NewSubject[projector.ScreenModel](),
		ctx:        ctx,
		cancel:     cancel,
		state:      domain.Loading(),
	}
	s.lastUsed = s.createdAt
	s.publishModelLocked()
	if opts.Location != nil {
		s.location.Report(*opts.Location)
	}
	s.sched = scheduler.New(opts.Interval, s.fire)
	return s
}

// ID returns the screen handle
func (s *Screen) ID() uuid.UUID { return s.id }

// CreatedAt returns when the screen was created
func (s *Screen) CreatedAt() time.Time { return s.createdAt }

// Appear resets the state to loading and starts the refresh timer.
// Appearing twice keeps a single timer.
func (s *Screen) Appear() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = domain.Loading()
	s.lastUsed = s.now()
	s.states.Publish(s.state)
	s.publishModelLocked()
	s.mu.Unlock()

	s.sched.Start(s.ctx)
	return nil
}

// Disappear stops the refresh timer. In-flight fetches of the timer are
// abandoned. The screen may appear again.
func (s *Screen) Disappear() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.sched.Stop()
}

// Close tears the screen down. No stream emits after Close returns.
func (s *Screen) Close() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.sched.Stop()

	s.states.Close()
	s.views.Close()
	s.weather.Close()
	s.models.Close()
}

// Closed reports whether the screen was torn down
func (s *Screen) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Active reports whether the refresh timer runs
func (s *Screen) Active() bool {
	return s.sched.Active()
}

// TimerCount returns the number of live refresh timers
func (s *Screen) TimerCount() int {
	return s.sched.Live()
}

// UpdateLocation records a device location. A visible screen refreshes
// immediately by restarting its timer.
func (s *Screen) UpdateLocation(p domain.GeoPoint) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.lastUsed = s.now()
	s.mu.Unlock()

	s.location.Report(p)
	if s.sched.Active() {
		s.sched.Start(s.ctx)
	}
	return nil
}

// Location resolves the location the next cycle will use
func (s *Screen) Location(ctx context.Context) (domain.GeoPoint, bool) {
	return s.location.Resolve(ctx)
}

// Refresh runs one cycle synchronously. It reports false when no
// location is known or the screen is closed.
func (s *Screen) Refresh(ctx context.Context) (service.CycleReport, bool) {
	if s.Closed() {
		return service.CycleReport{}, false
	}
	ctx, cancel := mergeCancel(ctx, s.ctx)
	defer cancel()
	return s.refresh(ctx)
}

// State returns the current loading state
func (s *Screen) State() domain.LoadingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the current aggregated view
func (s *Screen) View() domain.AggregatedView {
	return s.working.View()
}

// Model projects the current state for presentation
func (s *Screen) Model() projector.ScreenModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return s.modelLocked()
}

// LastReport returns the report of the last finished cycle
func (s *Screen) LastReport() (service.CycleReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return service.CycleReport{}, false
	}
	return *s.lastReport, true
}

// LastUsed returns the last time a client touched the screen
func (s *Screen) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Touch marks the screen as used
func (s *Screen) Touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

// States streams loading state changes
func (s *Screen) States() (<-chan domain.LoadingState, func()) { return s.states.Subscribe() }

// Views streams the aggregated view, once per applied category
func (s *Screen) Views() (<-chan domain.AggregatedView, func()) { return s.views.Subscribe() }

// Weather streams weather readings
func (s *Screen) Weather() (<-chan domain.WeatherSnapshot, func()) { return s.weather.Subscribe() }

// Models streams the projected screen model after every change
func (s *Screen) Models() (<-chan projector.ScreenModel, func()) { return s.models.Subscribe() }

// ApplyCategory implements service.CycleSink
func (s *Screen) ApplyCategory(category domain.Category, sets []domain.CategoryResponseSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.working.Apply(category, sets)
	s.views.Publish(s.working.View())
	s.publishModelLocked()

	switch {
	case s.icons == nil:
	case s.noPrefetch:
		s.icons.Remember(iconURLs(sets))
	default:
		s.icons.Prefetch(s.ctx, iconURLs(sets))
	}
}

// ApplyWeather implements service.CycleSink
func (s *Screen) ApplyWeather(readings []domain.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.proj.ObserveWeather(readings)
	if len(readings) > 0 {
		s.weather.Publish(readings[0])
	}
	s.publishModelLocked()
}

// SetState implements service.CycleSink
func (s *Screen) SetState(state domain.LoadingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state = state
	s.states.Publish(state)
	s.publishModelLocked()
}

func (s *Screen) fire(ctx context.Context) {
	if _, ok := s.refresh(ctx); !ok && ctx.Err() == nil {
		log.Printf("Screen %s: no location known, skipping refresh", s.id)
	}
}

func (s *Screen) refresh(ctx context.Context) (service.CycleReport, bool) {
	loc, ok := s.location.Resolve(ctx)
	if !ok {
		return service.CycleReport{}, false
	}

	report := s.runner.FetchAll(ctx, loc, s)
	if report.Canceled {
		return report, true
	}

	s.mu.Lock()
	if !s.closed {
		s.lastReport = &report
	}
	s.mu.Unlock()
	return report, true
}

func (s *Screen) modelLocked() projector.ScreenModel {
	return s.proj.Project(s.working.View(), s.state, s.now())
}

func (s *Screen) publishModelLocked() {
	s.models.Publish(s.modelLocked())
}

func iconURLs(sets []domain.CategoryResponseSet) []string {
	var urls []string
	for _, set := range sets {
		if set.IconURL != "" {
			urls = append(urls, set.IconURL)
		}
		for _, o := range set.Options {
			if o.IconURL != "" {
				urls = append(urls, o.IconURL)
			}
		}
	}
	return urls
}

// mergeCancel derives a context from ctx that is also canceled with other
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
