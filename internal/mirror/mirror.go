// Package mirror provides the observability cache that execution state is
// copied into while a run progresses. The mirror is a write-only sink from
// the engine's perspective: it is never read back into authoritative run
// state, and a write failure never affects the run it describes.
package mirror

import (
	"context"
	"time"
)

// Store holds serialized run state snapshots keyed by run id.
type Store interface {
	// Put stores a snapshot under runID with the given time-to-live.
	// A zero ttl means the entry does not expire.
	Put(ctx context.Context, runID string, data []byte, ttl time.Duration) error

	// Get returns the latest snapshot for runID, or nil if none exists.
	Get(ctx context.Context, runID string) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}
