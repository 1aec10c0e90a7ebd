package memory

import (
	"context"
	"sync"

	"github.com/wolfeidau/calendash/internal/store"
)

var _ store.KVStore = (*KVStore)(nil)

// KVStore implements store.KVStore using in-memory storage.
// Data is lost on restart, which makes it the backing for ephemeral state such as
// the OAuth CSRF value.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewKVStore creates a new in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		values: make(map[string]string),
	}
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", store.ErrClosed
	}

	value, exists := s.values[key]
	if !exists {
		return "", store.ErrNotFound
	}

	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	s.values[key] = value
	return nil
}

// Delete removes the given keys.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	for _, key := range keys {
		delete(s.values, key)
	}

	return nil
}

// Len returns the number of stored keys.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
