// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Entry is one cached completion.
type Entry struct {
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

// Store is a fallible key-value backend. Implementations must be safe for
// concurrent use. Get refreshes AccessedAt on a hit.
type Store interface {
	Get(key string) (Entry, bool, error)
	Set(key string, entry Entry) error
	Delete(key string) error
	Clear() error
	Len() (int, error)

	// Prune removes entries created before cutoff (when cutoff is non-zero)
	// and then the least recently accessed entries beyond maxEntries (when
	// maxEntries > 0). It returns the number removed.
	Prune(cutoff time.Time, maxEntries int) (int, error)

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Open creates the store for a backend name. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return OpenFileStore(path)
	case BackendSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps entries in a map guarded by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.AccessedAt = s.now()
	s.entries[key] = e
	return e, true, nil
}

func (s *MemoryStore) Set(key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Prune(cutoff time.Time, maxEntries int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pruneMap(s.entries, cutoff, maxEntries), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// pruneMap applies the Prune policy to a map in place.
func pruneMap(entries map[string]Entry, cutoff time.Time, maxEntries int) int {
	removed := 0
	if !cutoff.IsZero() {
		for k, e := range entries {
			if e.CreatedAt.Before(cutoff) {
				delete(entries, k)
				removed++
			}
		}
	}

	if maxEntries <= 0 || len(entries) <= maxEntries {
		return removed
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// Oldest access first; key breaks ties so eviction is deterministic.
	sort.Slice(keys, func(i, j int) bool {
		a, b := entries[keys[i]], entries[keys[j]]
		if !a.AccessedAt.Equal(b.AccessedAt) {
			return a.AccessedAt.Before(b.AccessedAt)
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys[:len(keys)-maxEntries] {
		delete(entries, k)
		removed++
	}
	return removed
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
