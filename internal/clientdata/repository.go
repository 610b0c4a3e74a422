// Package clientdata provides process-lifetime TTL caches for provider responses
// and derived lookups (quotes, FX rates, sectors, metadata).
// Entries keep their value after expiry so callers can fall back to stale data
// when every upstream fails.
package clientdata

import (
	"sort"
	"sync"
	"time"
)

// Entry is a cached value with its storage and expiry times.
type Entry[V any] struct {
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry has not expired at now.
func (e Entry[V]) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is a mutex-guarded key/value cache with a per-entry TTL.
// No lock is held while callers compute values, so concurrent writers for
// the same key race and the last write wins.
type Store[V any] struct {
	name    string
	mu      sync.RWMutex
	entries map[string]Entry[V]
	now     func() time.Time
}

// NewStore creates an empty store. name is used for cleanup reporting.
func NewStore[V any](name string) *Store[V] {
	return &Store[V]{
		name:    name,
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
}

// Name returns the store name.
func (s *Store[V]) Name() string {
	return s.name
}

// SetClock overrides the time source. Used by tests.
func (s *Store[V]) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Store saves value with expiration = now + ttl, replacing any previous entry.
func (s *Store[V]) Store(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = Entry[V]{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// GetIfFresh returns the value only if it has not expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (s *Store[V]) GetIfFresh(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !entry.Fresh(s.now()) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Get returns the entry regardless of expiration status.
// Stale data is better than no data when every provider failed.
func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok
}

// IsFresh reports whether key holds an unexpired entry.
func (s *Store[V]) IsFresh(key string) bool {
	_, ok := s.GetIfFresh(key)
	return ok
}

// Delete removes a specific entry.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of entries, fresh or stale.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns all keys in sorted order.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeleteExpired removes entries that expired more than grace ago.
// Returns the number of entries deleted.
func (s *Store[V]) DeleteExpired(grace time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-grace)
	var deleted int64
	for key, entry := range s.entries {
		if entry.ExpiresAt.Before(cutoff) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

// Purger is implemented by every Store regardless of value type.
type Purger interface {
	Name() string
	DeleteExpired(grace time.Duration) int64
}

// Registry tracks stores so a single job can purge them all.
type Registry struct {
	mu     sync.Mutex
	stores []Purger
	grace  time.Duration
}

// NewRegistry creates a registry. Entries are kept for grace after expiry so
// stale fallbacks stay available for a while.
func NewRegistry(grace time.Duration) *Registry {
	return &Registry{grace: grace}
}

// Grace is how long expired entries survive a purge.
func (r *Registry) Grace() time.Duration {
	return r.grace
}

// Register adds a store to the registry.
func (r *Registry) Register(p Purger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, p)
}

// DeleteAllExpired purges every registered store.
// Returns a map of store name to number of entries deleted.
func (r *Registry) DeleteAllExpired() map[string]int64 {
	r.mu.Lock()
	stores := append([]Purger(nil), r.stores...)
	r.mu.Unlock()

	results := make(map[string]int64, len(stores))
	for _, s := range stores {
		results[s.Name()] += s.DeleteExpired(r.grace)
	}
	return results
}
