package gate

import (
	"context"
	"sync"
	"time"
)

// CounterStore is the shared rate-limit counter. Implementations must
// support safe concurrent increments; this and the audit sink are the
// only resources mutated across concurrent attempts.
type CounterStore interface {
	// Incr advances the counter for key within the current fixed window
	// and returns the post-increment count. A fresh window starts at 1.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// MemCounterStore is a fixed-window counter for single-process
// deployments and tests.
type MemCounterStore struct {
	mu      sync.Mutex
	windows map[string]*counterWindow
	now     func() time.Time
}

type counterWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemCounterStore returns an empty in-memory counter store.
func NewMemCounterStore() *MemCounterStore {
	return &MemCounterStore{
		windows: make(map[string]*counterWindow),
		now:     time.Now,
	}
}

func (s *MemCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &counterWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}
