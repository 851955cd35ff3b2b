// Package localstore is the small host-local key/value store that carries "remember me"
// continuity across process restarts.
package localstore

import (
	"context"
	"errors"
	"sync"
)

// Keys written by the session manager.
const (
	KeyRemember     = "session.remember"
	KeySessionStart = "session.start"
	KeyLastActivity = "session.last_activity"
	KeyCredential   = "session.credential"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("localstore: closed")

// Store is a string key/value store. Get reports ok false for missing keys;
// Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store. Values do not survive restarts.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
