package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFiresImmediately(t *testing.T) {
	var fired atomic.Int32
	s := New(time.Hour, func(ctx context.Context) { fired.Add(1) })

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return fired.Load() == 1 })
}

func TestFiresRepeatedly(t *testing.T) {
	var fired atomic.Int32
	s := New(10*time.Millisecond, func(ctx context.Context) { fired.Add(1) })

	s.Start(context.Background())
	waitFor(t, func() bool { return fired.Load() >= 3 })
	s.Stop()

	if s.Fires() < 3 {
		t.Errorf("Fires() = %d, expected at least 3", s.Fires())
	}
}

func TestDoubleStartKeepsSingleTimer(t *testing.T) {
	s := New(5*time.Millisecond, func(ctx context.Context) {})

	s.Start(context.Background())
	s.Start(context.Background())
	s.Start(context.Background())

	if n := s.Live(); n != 1 {
		t.Fatalf("Live() = %d after repeated Start, expected 1", n)
	}
	if !s.Active() {
		t.Error("scheduler should be active")
	}

	s.Stop()
	if n := s.Live(); n != 0 {
		t.Errorf("Live() = %d after Stop, expected 0", n)
	}
}

func TestStopCancelsTimer(t *testing.T) {
	var fired atomic.Int32
	s := New(5*time.Millisecond, func(ctx context.Context) { fired.Add(1) })

	s.Start(context.Background())
	waitFor(t, func() bool { return fired.Load() >= 1 })
	s.Stop()

	if s.Active() {
		t.Error("scheduler should be inactive after Stop")
	}
	after := fired.Load()
	time.Sleep(30 * time.Millisecond)
	if fired.Load() != after {
		t.Errorf("timer fired after Stop: %d -> %d", after, fired.Load())
	}

	// Idempotent
	s.Stop()
}

func TestStopCancelsInFlightFire(t *testing.T) {
	started := make(chan struct{})
	var canceled atomic.Bool
	s := New(time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		canceled.Store(true)
	})

	s.Start(context.Background())
	<-started
	s.Stop()

	if !canceled.Load() {
		t.Error("in-flight fire should observe cancellation before Stop returns")
	}
}

func TestParentCancelStopsTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(5*time.Millisecond, func(ctx context.Context) {})

	s.Start(ctx)
	cancel()
	waitFor(t, func() bool { return s.Live() == 0 })
	s.Stop()
}

func TestDefaultInterval(t *testing.T) {
	if s := New(0, func(context.Context) {}); s.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, expected %v", s.Interval(), DefaultInterval)
	}
}
