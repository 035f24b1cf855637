// Package observe provides push-based value streams with subscriber channels.
package observe

import "sync"

// DefaultBuffer is the per-subscriber channel capacity
const DefaultBuffer = 16

// Subject broadcasts values to subscribers and remembers the latest one.
// New subscribers receive the latest value first when one exists.
// Publishing never blocks: a full subscriber drops its oldest pending value.
type Subject[T any] struct {
	mu     sync.Mutex
	latest T
	has    bool
	subs   map[int]chan T
	nextID int
	closed bool
	buffer int
}

// NewSubject creates a subject with no initial value
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[int]chan T), buffer: DefaultBuffer}
}

// NewValueSubject creates a subject holding an initial value
func NewValueSubject[T any](initial T) *Subject[T] {
	s := NewSubject[T]()
	s.latest = initial
	s.has = true
	return s
}

// Publish stores v as the latest value and delivers it to every subscriber.
// Publishing on a closed subject is a no-op.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.latest = v
	s.has = true
	for _, ch := range s.subs {
		deliver(ch, v)
	}
}

// Value returns the latest value
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

// Subscribe registers a subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call twice.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, s.buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	if s.has {
		ch <- s.latest
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close closes every subscriber channel. Later publishes are dropped.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// deliver must be called with the subject lock held
func deliver[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		// Full: drop the oldest pending value and retry
		select {
		case <-ch:
		default:
		}
	}
}
