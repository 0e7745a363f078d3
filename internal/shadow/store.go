package shadow

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

// Entry is one cached point value with the time it was observed.
type Entry struct {
	Value     protocol.Value `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
}

// Age returns how long ago the entry was observed.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Fresh reports whether the entry is younger than ttl at the given time.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}

// Store is the device shadow: the last known value of every point the
// gateway has observed, keyed by point ID. All methods are safe for
// concurrent use.
//
// Updates are last-writer-wins by observation timestamp: a stale update
// (older than what the store already holds) is dropped, so late driver
// responses never roll a point backwards.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*pointEntry
}

// pointEntry carries its own lock so updates to distinct points never
// contend once the entry exists.
type pointEntry struct {
	mu    sync.Mutex
	value protocol.Value
	at    time.Time
}

// NewStore creates an empty shadow store.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*pointEntry)}
}

// Get returns the cached entry for a point, if any.
func (s *Store) Get(pointID int64) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[pointID]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	e.mu.Lock()
	entry := Entry{Value: e.value, Timestamp: e.at}
	e.mu.Unlock()
	return entry, true
}

// Put records an observed value for a point. Returns true if the store
// accepted the update, false if a newer observation was already present.
func (s *Store) Put(pointID int64, v protocol.Value, observedAt time.Time) bool {
	s.mu.RLock()
	e, ok := s.entries[pointID]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		e, ok = s.entries[pointID]
		if !ok {
			e = &pointEntry{}
			s.entries[pointID] = e
		}
		s.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.at.IsZero() && observedAt.Before(e.at) {
		return false
	}
	e.value = v
	e.at = observedAt
	return true
}

// Delete removes a point's entry, typically after the point itself is
// deleted.
func (s *Store) Delete(pointID int64) {
	s.mu.Lock()
	delete(s.entries, pointID)
	s.mu.Unlock()
}

// Snapshot returns a copy of every cached entry keyed by point ID.
func (s *Store) Snapshot() map[int64]Entry {
	s.mu.RLock()
	refs := make(map[int64]*pointEntry, len(s.entries))
	for id, e := range s.entries {
		refs[id] = e
	}
	s.mu.RUnlock()

	out := make(map[int64]Entry, len(refs))
	for id, e := range refs {
		e.mu.Lock()
		out[id] = Entry{Value: e.value, Timestamp: e.at}
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of cached points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
