package pipeline

import (
	"context"
	"sync"

	"github.com/couchcryptid/been-map-service/internal/domain"
)

// StateConsumer receives complete host state snapshots.
type StateConsumer interface {
	OnExternalStateChanged(snapshot domain.StateSnapshot)
}

// SnapshotLoader accumulates entity states into a host snapshot and hands
// the merged snapshot to the consumer after every change. It implements
// BatchLoader and is shared by every source of entity state.
type SnapshotLoader struct {
	mu       sync.Mutex
	snapshot domain.StateSnapshot
	consumer StateConsumer
}

// NewSnapshotLoader creates a loader with an empty snapshot.
func NewSnapshotLoader(consumer StateConsumer) *SnapshotLoader {
	return &SnapshotLoader{
		snapshot: domain.NewStateSnapshot(),
		consumer: consumer,
	}
}

// LoadBatch merges entities into the snapshot (later entries win) and
// applies the result once.
func (l *SnapshotLoader) LoadBatch(_ context.Context, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.snapshot
	for _, e := range entities {
		next = next.With(e)
	}
	l.snapshot = next
	l.consumer.OnExternalStateChanged(next)
	return nil
}

// Replace swaps in a complete snapshot and applies it.
func (l *SnapshotLoader) Replace(snapshot domain.StateSnapshot) {
	if snapshot.Entities == nil {
		snapshot = domain.NewStateSnapshot()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.snapshot = snapshot
	l.consumer.OnExternalStateChanged(snapshot)
}

// Snapshot returns the current merged snapshot.
func (l *SnapshotLoader) Snapshot() domain.StateSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}
