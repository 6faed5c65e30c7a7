package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window is one key's counter and the instant it stops counting.
type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. State is lost on restart.
//
// Expired windows are evicted opportunistically every gcEvery increments so
// memory stays bounded by the number of clients seen within one window.
// This type is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[string]*window
	gcEvery  uint64
	cleanupN uint64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		gcEvery: 1000,
	}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, d time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupN++
	if s.cleanupN >= s.gcEvery {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
		s.cleanupN = 0
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Len reports how many keys currently hold a window (expired or not).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
