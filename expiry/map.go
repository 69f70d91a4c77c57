package expiry

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero value means the entry never expires
}

// Map is a keyed store of values with per-entry expiry deadlines. Expired
// entries are removed lazily when read and actively by Sweep; the two paths are
// independent so that keys which are never re-read still get reclaimed.
//
// All operations are safe for concurrent use. The expired check and the delete
// it triggers happen under one lock, so two callers racing an expiring entry
// both observe it as absent.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	nowFunc func() time.Time
}

// Option configures a Map.
type Option[K comparable, V any] func(*Map[K, V])

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(m *Map[K, V]) {
		m.nowFunc = now
	}
}

// New creates an empty Map.
func New[K comparable, V any](options ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		entries: make(map[K]entry[V]),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Set inserts or overwrites the entry for key. A zero expiresAt stores the
// value without a deadline.
func (m *Map[K, V]) Set(key K, value V, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Get returns the live value for key. An entry whose deadline has passed is
// deleted and reported as absent.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expiresAt.IsZero() && !m.nowFunc().Before(e.expiresAt) {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes the entry for key if present. Deleting an absent key is a
// no-op.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

// Sweep removes every entry whose deadline is at or before now and returns the
// number removed.
func (m *Map[K, V]) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// DeleteWhere removes every entry satisfying pred and returns the number
// removed.
func (m *Map[K, V]) DeleteWhere(pred func(key K, value V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if pred(key, e.value) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, counting expired entries that have
// not yet been swept or lazily removed.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}
