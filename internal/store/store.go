// Package store contains the core storage engine of the key-value node.
//
// This store:
//   - keeps every record in memory only — no WAL, no snapshot, no disk at
//     all. Durable storage is explicitly out of scope for this design; a
//     restart loses everything, on purpose.
//   - guards every mutation and every multi-field read with a per-key
//     exclusive lock, so concurrent writers to different keys never wait
//     on each other's key lock (they share only the brief store-wide map
//     lock), while readers of the same key always see a (value,
//     version, deps) triple that was written together.
//
// The lock map grows monotonically and is never pruned. That's a known,
// accepted cost here (the keyspace an exercise deployment holds is small);
// a long-lived production node would need an eviction policy for it.
package store

import (
	"sync"

	"causalkv/internal/causal"
)

// Store is the in-memory key -> Entry map for one replica.
//
// mu guards the data map's structural shape (insertion, deletion,
// iteration) and the locks map's structural shape. Per-key mutual
// exclusion for mutating a single Entry is handled separately by the
// *sync.Mutex returned from keyLock — with this two-level locking, writers
// to different keys serialize only for the map update itself under mu.
type Store struct {
	mu    sync.RWMutex
	data  map[string]causal.Entry
	locks map[string]*sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data:  make(map[string]causal.Entry),
		locks: make(map[string]*sync.Mutex),
	}
}

// keyLock returns the exclusive lock for key, creating it on first use.
// Once created a key's lock is never removed, even after the key itself is
// deleted (e.g. during view-change key transfer) — a future write to the
// same key reuses it rather than racing a fresh lock into existence.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.RLock()
	l, ok := s.locks[key]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l = &sync.Mutex{}
	s.locks[key] = l
	return l
}

// Lookup returns the Entry stored for key and whether it exists. The
// returned Entry is a value copy; its Deps map is still shared with the
// stored copy, so callers that might mutate a returned Deps must copy it
// first (see causal.Deps.Copy).
func (s *Store) Lookup(key string) (causal.Entry, bool) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	return e, ok
}

// Upsert replaces whatever is stored for key with entry, under key's
// exclusive lock.
func (s *Store) Upsert(key string, entry causal.Entry) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
}

// WithLock runs fn while holding key's exclusive lock, passing the current
// Entry (and whether it exists). fn's return value (entry, keep) is applied
// atomically: if keep is true, entry replaces the stored value; otherwise
// nothing changes. This is the building block every caller that needs
// read-then-conditionally-write semantics (the write path, convergence,
// accept-key) is built on.
func (s *Store) WithLock(key string, fn func(current causal.Entry, exists bool) (entry causal.Entry, keep bool)) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, exists := s.data[key]
	s.mu.RUnlock()

	entry, keep := fn(current, exists)
	if !keep {
		return
	}

	s.mu.Lock()
	s.data[key] = entry
	s.mu.Unlock()
}

// Delete removes key entirely. Used only by view-change key transfer,
// after the entry has been handed off to its new owning shard.
func (s *Store) Delete(key string) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys returns a snapshot of every key currently stored.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a shallow copy of the entire store, suitable for
// gossiping to a peer. Entries themselves are copied by value; their Deps
// maps are shared, which is safe because nothing mutates a Deps map that
// belongs to a stored Entry in place (writers always build a fresh map).
func (s *Store) Snapshot() map[string]causal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]causal.Entry, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
