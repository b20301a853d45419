package tracking

import (
	"context"
	"sync"
)

// Store is the durable key/value capability the pipeline depends on.
// One implementation exists per host platform (cookie jar, device-local
// storage, SQL database); the core depends only on this interface.
//
// Two logical records are stored: "identity" (identity and session state)
// and "eventQueue" (pending events). Writes are partitioned by key so no
// two components mutate the same key: the identity manager owns the
// identity key, the event queue owns the queue key.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNoData if the key holds no record.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the value stored under key.
	// Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// MemoryStore is an in-memory Store implementation. State does not survive
// process restarts; useful for tests and for hosts without durable storage.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

// Get retrieves the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrNoData
	}
	return value, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Remove deletes the value stored under key.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// NoopStore is a Store that persists nothing. Used when persistence is
// disabled by configuration; every Get reports first-run state.
type NoopStore struct{}

// Get always returns ErrNoData.
func (s *NoopStore) Get(_ context.Context, _ string) (string, error) {
	return "", ErrNoData
}

// Set does nothing.
func (s *NoopStore) Set(_ context.Context, _, _ string) error {
	return nil
}

// Remove does nothing.
func (s *NoopStore) Remove(_ context.Context, _ string) error {
	return nil
}
