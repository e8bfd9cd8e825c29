// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/util"
)

// FileStore keeps every entry in one JSON object on disk.
//
// The whole map is loaded at open and rewritten atomically on each mutation.
// Access times are refreshed in memory and reach disk with the next write.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
	now     func() time.Time
}

// OpenFileStore loads (or creates on first write) the cache file at path.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file cache: path is required")
	}

	s := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file cache: read %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("file cache: parse %s: %w", filepath.Base(path), err)
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string) (Entry, bool, error) {
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

func (s *FileStore) Set(key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = entry
	if err := s.flushLocked(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	return s.flushLocked()
}

func (s *FileStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *FileStore) Prune(cutoff time.Time, maxEntries int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := pruneMap(s.entries, cutoff, maxEntries)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.flushLocked()
}

// Close flushes refreshed access times.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	return s.flushLocked()
}

// flushLocked writes the map to disk. Caller must hold s.mu.
func (s *FileStore) flushLocked() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("file cache: encode: %w", err)
	}
	// SECURITY: owner-only, cached completions may quote system prompts
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("file cache: write: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)
