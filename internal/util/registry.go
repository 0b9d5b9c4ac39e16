package util

import (
	"sync"
	"time"
)

type registryRecord[T any] struct {
	expiresAt time.Time
	value     T
}

// Registry is a keyed in-process map whose entries expire after ttl without
// access. Every access renews the entry it touches.
type Registry[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]registryRecord[T]
}

func NewRegistry[T any](ttl time.Duration) *Registry[T] {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Registry[T]{ttl: ttl, now: time.Now, entries: make(map[string]registryRecord[T])}
}

func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	record, ok := r.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	record.expiresAt = r.now().Add(r.ttl)
	r.entries[key] = record
	return record.value, true
}

// GetOrCreate returns the entry under key, storing create() first if absent.
func (r *Registry[T]) GetOrCreate(key string, create func() T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	record, ok := r.entries[key]
	if !ok {
		record.value = create()
	}
	record.expiresAt = r.now().Add(r.ttl)
	r.entries[key] = record
	return record.value
}

func (r *Registry[T]) Put(key string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.entries[key] = registryRecord[T]{expiresAt: r.now().Add(r.ttl), value: value}
}

func (r *Registry[T]) Delete(key string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.entries[key]
	delete(r.entries, key)
	return record.value, ok
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.entries)
}

func (r *Registry[T]) sweepLocked() {
	now := r.now()
	for key, record := range r.entries {
		if now.After(record.expiresAt) {
			delete(r.entries, key)
		}
	}
}
