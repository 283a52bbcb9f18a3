// Package storage implements the orchestrator's ephemeral key-value store,
// backing the gateway's /storage/{key} endpoint. Data does not survive a
// process restart; it exists to let warm-restored function instances
// exchange small amounts of state without reaching for an external
// dependency.
package storage

import (
	"sync"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

// Store is a concurrency-safe, in-memory key-value store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the stored value for key, failing with a RegistryLookup-kind
// error if absent.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, aethererr.NewRegistryLookup("Get", key, "key not found")
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores value under key, overwriting any prior value.
func (s *Store) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
}

// Delete removes key, if present. Deleting an absent key is not an error.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys returns every key currently stored, in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
