// Package scheduler drives periodic refresh cycles for one screen.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval between refresh cycles
const DefaultInterval = 60 * time.Second

// FireFunc runs one refresh. ctx is canceled when the timer stops.
type FireFunc func(ctx context.Context)

// Scheduler owns at most one repeating timer. The timer fires once
// immediately and then every interval on its own goroutine.
type Scheduler struct {
	interval time.Duration
	fire     FireFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	live  atomic.Int32
	fires atomic.Int64
}

// New creates a stopped scheduler
func New(interval time.Duration, fire FireFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval, fire: fire}
}

// Start creates the timer. An already running timer is stopped first
// and its goroutine has exited before the new one starts.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.live.Add(1)
	go s.run(ctx, done)
}

// Stop cancels and releases the timer, waiting for an in-progress fire
// to return. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Active reports whether a timer is currently running
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Live returns the number of timer goroutines still running
func (s *Scheduler) Live() int {
	return int(s.live.Load())
}

// Fires returns how many times the timer has fired
func (s *Scheduler) Fires() int64 {
	return s.fires.Load()
}

// Interval returns the configured period
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.live.Add(-1)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.fires.Add(1)
	s.fire(ctx)
}
