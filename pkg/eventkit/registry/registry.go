package registry

import (
	"iter"
	"sync"
)

// Registry is a thread-safe map of values indexed by key.
// It uses sync.RWMutex for read-heavy workloads: event lookups vastly
// outnumber first-time creations.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Insert stores value under key only if the key is absent.
// It returns the value now stored and whether this call stored it.
func (r *Registry[K, V]) Insert(key K, value V) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[key]; ok {
		return existing, false
	}
	r.entries[key] = value
	return value, true
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist. The factory is called at most once per key,
// even under concurrent access, and runs while the write lock is held; it
// must not call back into the registry.
//
// The second return value reports whether this call created the value.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) (V, bool) {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := r.entries[key]; ok {
		return v, false
	}

	v = factory()
	r.entries[key] = v
	return v, true
}

// Delete removes a key from the registry. It reports whether the key was present.
func (r *Registry[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok
}

// CompareAndDelete removes key only while it still maps to a value for which
// match returns true.
func (r *Registry[K, V]) CompareAndDelete(key K, match func(V) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	if !ok || !match(v) {
		return false
	}
	delete(r.entries, key)
	return true
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All iterates over a snapshot of the registry, so it is safe to Insert or
// Delete during iteration without affecting the current iteration.
// The order is not guaranteed.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	snapshot := make(map[K]V, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for k, v := range snapshot {
			if !yield(k, v) {
				return
			}
		}
	}
}
