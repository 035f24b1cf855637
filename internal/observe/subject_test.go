package observe

import "testing"

func TestSubjectReplaysLatest(t *testing.T) {
	s := NewSubject[int]()
	s.Publish(1)
	s.Publish(2)

	ch, cancel := s.Subscribe()
	defer cancel()

	if v := <-ch; v != 2 {
		t.Errorf("first value = %d, expected latest 2", v)
	}

	s.Publish(3)
	if v := <-ch; v != 3 {
		t.Errorf("value = %d, expected 3", v)
	}
}

func TestSubjectWithoutValue(t *testing.T) {
	s := NewSubject[string]()
	ch, cancel := s.Subscribe()
	defer cancel()

	select {
	case v := <-ch:
		t.Errorf("unexpected replay %q", v)
	default:
	}

	if _, ok := s.Value(); ok {
		t.Error("Value() should report no value")
	}
}

func TestValueSubject(t *testing.T) {
	s := NewValueSubject("loading")
	ch, cancel := s.Subscribe()
	defer cancel()
	if v := <-ch; v != "loading" {
		t.Errorf("initial = %q", v)
	}
}

func TestSubjectDropsOldestWhenFull(t *testing.T) {
	s := NewSubject[int]()
	ch, cancel := s.Subscribe()
	defer cancel()

	total := DefaultBuffer + 5
	for i := 1; i <= total; i++ {
		s.Publish(i)
	}

	if n := len(ch); n != DefaultBuffer {
		t.Fatalf("pending = %d, expected %d", n, DefaultBuffer)
	}
	if v := <-ch; v != total-DefaultBuffer+1 {
		t.Errorf("oldest pending = %d, expected %d", v, total-DefaultBuffer+1)
	}
}

func TestSubjectCancelAndClose(t *testing.T) {
	s := NewSubject[int]()
	ch1, cancel1 := s.Subscribe()
	ch2, _ := s.Subscribe()

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Error("cancelled channel should be closed")
	}

	s.Close()
	if _, ok := <-ch2; ok {
		t.Error("Close should close subscriber channels")
	}

	// No panic after close
	s.Publish(5)
	ch3, cancel3 := s.Subscribe()
	cancel3()
	if _, ok := <-ch3; ok {
		t.Error("subscribing to a closed subject yields a closed channel")
	}
}
