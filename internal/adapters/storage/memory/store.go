// Package memory provides an in-process implementation of ports.KeyValueStore.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Compile-time interface check.
var _ ports.KeyValueStore = (*Store)(nil)

// Store keeps slots in a map for the lifetime of the process.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("read", key, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[key]
	if !ok {
		return nil, domain.NewNotFoundError("slot", key)
	}

	return slices.Clone(v), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("write", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = slices.Clone(value)

	return nil
}

// Delete clears the slot.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)

	return nil
}

// Name identifies the store in health responses.
func (s *Store) Name() string {
	return "memory"
}

// Check always succeeds.
func (s *Store) Check(_ context.Context) error {
	return nil
}
