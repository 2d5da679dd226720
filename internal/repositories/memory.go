package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opexdevelop/mediacache/internal/models"
)

// MemoryStore implements [CacheStore] in process memory. Entries vanish on
// restart; it backs tests and ephemeral deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CacheEntry)}
}

// Get retrieves a cache entry by key.
func (s *MemoryStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Put inserts or replaces the entry for its key.
func (s *MemoryStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = *entry
	return nil
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// List returns all entries ordered by insertion time, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InsertedAt.After(entries[j].InsertedAt)
	})

	return entries, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
