package screen

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/mobility/internal/domain"
	"github.com/smartcity/mobility/internal/imagecache"
)

// ErrNotFound is returned for unknown or removed screen handles
var ErrNotFound = errors.New("screen: not found")

// Registry addresses live screens by uuid handle
type Registry struct {
	runner   Runner
	icons    *imagecache.Cache
	defaults Options

	mu      sync.RWMutex
	screens map[uuid.UUID]*Screen
}

// NewRegistry creates an empty registry. defaults apply to every new screen.
func NewRegistry(runner Runner, icons *imagecache.Cache, defaults Options) *Registry {
	return &Registry{
		runner:   runner,
		icons:    icons,
		defaults: defaults,
		screens:  make(map[uuid.UUID]*Screen),
	}
}

// Create registers a new screen. A non-nil location seeds its device location.
func (r *Registry) Create(location *domain.GeoPoint) *Screen {
	opts := r.defaults
	if location != nil {
		opts.Location = location
	}

	s := New(r.runner, r.icons, opts)

	r.mu.Lock()
	r.screens[s.ID()] = s
	r.mu.Unlock()

	log.Printf("Screen %s: created", s.ID())
	return s
}

// Get returns the live screen for id
func (r *Registry) Get(id uuid.UUID) (*Screen, error) {
	r.mu.RLock()
	s, ok := r.screens[id]
	r.mu.RUnlock()

	if !ok || s.Closed() {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove tears a screen down and forgets its handle
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	log.Printf("Screen %s: removed", id)
	return nil
}

// Len returns the number of registered screens
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}

// Reap removes screens untouched for longer than maxIdle
func (r *Registry) Reap(now time.Time, maxIdle time.Duration) int {
	cutoff := now.Add(-maxIdle)

	r.mu.Lock()
	var idle []*Screen
	for id, s := range r.screens {
		if s.LastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
		log.Printf("Screen %s: reaped after %v idle", s.ID(), maxIdle)
	}
	return len(idle)
}

// RunReaper reaps idle screens every interval until ctx is done
func (r *Registry) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Reap(now, maxIdle)
		}
	}
}

// CloseAll tears every screen down
func (r *Registry) CloseAll() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[uuid.UUID]*Screen)
	r.mu.Unlock()

	for _, s := range screens {
		s.Close()
	}
}
