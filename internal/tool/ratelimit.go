package tool

import (
	"sync"
	"time"
)

// slidingWindow counts invocations per key inside a trailing time window.
// Keys combine capability id and tenant id, so one tenant exhausting a
// capability's budget does not starve another.
type slidingWindow struct {
	mu    sync.Mutex
	calls map[string][]time.Time
	now   func() time.Time
}

func newSlidingWindow() *slidingWindow {
	return &slidingWindow{
		calls: make(map[string][]time.Time),
		now:   time.Now,
	}
}

// allow records an invocation for key if fewer than limit invocations
// happened within the trailing window, and reports whether it was admitted.
func (w *slidingWindow) allow(key string, limit int, window time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-window)

	recent := w.calls[key][:0]
	for _, t := range w.calls[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		w.calls[key] = recent
		return false
	}

	w.calls[key] = append(recent, now)
	return true
}

// forget drops all recorded invocations for keys with the given prefix.
// Called when a capability is unregistered.
func (w *slidingWindow) forget(prefix string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key := range w.calls {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(w.calls, key)
		}
	}
}
