// Package cache provides the in-process TTL memoization used by the
// report aggregator and the active-shift lookup. It is a latency layer
// only: every cached value is derived and idempotent for identical
// inputs, so last-writer-wins on racing fills is acceptable and results
// must be identical whether or not the cache is enabled.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is a concurrency-safe key/value map with per-entry TTL. Stale
// entries are evicted lazily on read and periodically by the janitor
// started with StartJanitor.
type Store[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	now     func() time.Time // swappable for tests
	done    chan struct{}
}

func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		entries: make(map[K]entry[V]),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Get returns the fresh value for key. A stale entry is evicted and
// reported as a miss.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a racing Set may have refreshed it
		if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (s *Store[K, V]) Set(key K, value V, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Invalidate removes one key immediately. Callers mutating the underlying
// state must invalidate rather than wait for TTL expiry.
func (s *Store[K, V]) Invalidate(key K) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidateAll empties the store
func (s *Store[K, V]) InvalidateAll() {
	s.mu.Lock()
	s.entries = make(map[K]entry[V])
	s.mu.Unlock()
}

func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// sweep removes every expired entry
func (s *Store[K, V]) sweep() {
	now := s.now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

// StartJanitor runs a periodic sweep until Stop is called
func (s *Store[K, V]) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop terminates the janitor goroutine
func (s *Store[K, V]) Stop() {
	close(s.done)
}
