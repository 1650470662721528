package cache

import (
	"testing"
	"time"
)

func TestGetMissOnEmptyStore(t *testing.T) {
	s := New[string, int]()
	if _, ok := s.Get("absent"); ok {
		t.Error("expected miss on empty store")
	}
}

func TestSetThenGet(t *testing.T) {
	s := New[string, int]()
	s.Set("a", 42, time.Minute)

	v, ok := s.Get("a")
	if !ok || v != 42 {
		t.Errorf("Get = (%d, %v), want (42, true)", v, ok)
	}
}

func TestStaleEntryEvictedLazilyOnRead(t *testing.T) {
	s := New[string, int]()
	clock := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Set("a", 1, 30*time.Second)

	clock = clock.Add(29 * time.Second)
	if _, ok := s.Get("a"); !ok {
		t.Fatal("entry should still be fresh")
	}

	clock = clock.Add(2 * time.Second)
	if _, ok := s.Get("a"); ok {
		t.Fatal("entry should be stale")
	}
	if s.Len() != 0 {
		t.Error("stale entry should have been evicted on read")
	}
}

func TestInvalidateRemovesImmediately(t *testing.T) {
	s := New[string, string]()
	s.Set("shift", "open", time.Hour)

	s.Invalidate("shift")
	if _, ok := s.Get("shift"); ok {
		t.Error("invalidated entry must not be readable, regardless of TTL")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := New[string, int]()
	clock := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Set("short", 1, time.Second)
	s.Set("long", 2, time.Hour)

	clock = clock.Add(time.Minute)
	s.sweep()

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if _, ok := s.Get("long"); !ok {
		t.Error("unexpired entry swept")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New[int, int]()
	done := make(chan struct{})

	go func() {
		for i := 0; i < 1000; i++ {
			s.Set(i%10, i, time.Minute)
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		s.Get(i % 10)
	}
	<-done
}
