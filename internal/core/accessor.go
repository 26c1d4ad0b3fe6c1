package core

import (
	"context"
	"sync"
	"sync/atomic"

	"vlabprogress/pkg/domain"
)

// Accessor is the never-fails wrapper over the durable store. Driver errors
// are absorbed and converted into absent-value or no-effect results so callers
// proceed with degraded-but-consistent state. Successful writes fan out to
// registered change watchers, the process-local analog of cross-tab storage
// events.
type Accessor struct {
	kv domain.KVStore

	mu       sync.RWMutex
	watchers map[int]domain.ChangeWatcher
	nextID   int

	dropped atomic.Int64
}

// NewAccessor wraps a durable store.
func NewAccessor(kv domain.KVStore) *Accessor {
	return &Accessor{kv: kv, watchers: make(map[int]domain.ChangeWatcher)}
}

// Get returns the value under key and whether it was present. Driver failures
// read as absent.
func (a *Accessor) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		a.dropped.Add(1)
		return "", false
	}
	return value, ok
}

// Set stores value under key, reporting whether the write took effect.
func (a *Accessor) Set(ctx context.Context, key, value string) bool {
	if err := a.kv.Set(ctx, key, value); err != nil {
		a.dropped.Add(1)
		return false
	}
	a.notify(domain.ChangeEvent{Key: key, Value: value})
	return true
}

// Remove deletes key, reporting whether the removal took effect.
func (a *Accessor) Remove(ctx context.Context, key string) bool {
	if err := a.kv.Remove(ctx, key); err != nil {
		a.dropped.Add(1)
		return false
	}
	a.notify(domain.ChangeEvent{Key: key, Removed: true})
	return true
}

// Keys lists stored keys under prefix; failures read as an empty listing.
func (a *Accessor) Keys(ctx context.Context, prefix string) []string {
	keys, err := a.kv.Keys(ctx, prefix)
	if err != nil {
		a.dropped.Add(1)
		return nil
	}
	return keys
}

// Watch registers a change watcher and returns its cancel function. Watchers
// run synchronously on the writer's goroutine.
func (a *Accessor) Watch(w domain.ChangeWatcher) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = w
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.watchers, id)
		a.mu.Unlock()
	}
}

// Notify injects an externally observed change, e.g. a write performed by
// another context sharing the same durable store.
func (a *Accessor) Notify(ev domain.ChangeEvent) { a.notify(ev) }

func (a *Accessor) notify(ev domain.ChangeEvent) {
	a.mu.RLock()
	watchers := make([]domain.ChangeWatcher, 0, len(a.watchers))
	for _, w := range a.watchers {
		watchers = append(watchers, w)
	}
	a.mu.RUnlock()
	for _, w := range watchers {
		w(ev)
	}
}

// DroppedOps counts operations absorbed due to driver failures.
func (a *Accessor) DroppedOps() int64 { return a.dropped.Load() }
