// Package cache holds the proxy's short-lived local view of backend values.
//
// The store keeps every value it has ever observed together with the time it
// was written; staleness is decided lazily on lookup against the caller's
// age bound, so entries are never physically removed. The store is shared by
// all client connections and is the only shared mutable state in the process.
package cache

import (
	"iter"
	"sync"
	"time"

	"github.com/Harbinger55555/KV-StorageSys/internal/metrics"
)

type entry struct {
	value     string
	writtenAt time.Time
}

// Store is a mutex-guarded key/value mapping with age-bounded lookup.
// The zero value is not usable; construct with New.
type Store struct {
	mu    sync.RWMutex
	data  map[string]entry
	order []string // insertion order for Keys

	now func() time.Time
}

func New() *Store {
	return &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// NewWithClock builds a Store with an injected time source. Tests use this
// to age entries without sleeping.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// StoreValue overwrites any existing entry for key with value and the
// current timestamp. A later GetValue sees the new value with a reset age.
func (s *Store) StoreValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		s.order = append(s.order, key)
	}
	s.data[key] = entry{value: value, writtenAt: s.now()}
}

// GetValue returns the stored value for key if an entry exists and is no
// older than maxAge. The second return distinguishes a miss from an empty
// stored value.
func (s *Store) GetValue(key string, maxAge time.Duration) (string, bool) {
	s.mu.RLock()
	e, exists := s.data[key]
	s.mu.RUnlock()

	hit := exists && s.now().Sub(e.writtenAt) <= maxAge
	metrics.RecordLookup(hit)
	if !hit {
		return "", false
	}
	return e.value, true
}

// Keys returns a restartable sequence of all stored keys in insertion
// order. Stale entries are included: enumeration reflects what the store
// holds, not what is currently fresh.
func (s *Store) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.RLock()
		snapshot := make([]string, len(s.order))
		copy(snapshot, s.order)
		s.mu.RUnlock()

		for _, k := range snapshot {
			if !yield(k) {
				return
			}
		}
	}
}

// Len reports how many distinct keys the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
