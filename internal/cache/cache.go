// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Options bounds the cache. Zero values disable the corresponding limit.
type Options struct {
	// TTL expires entries this long after they were written.
	TTL time.Duration

	// MaxEntries evicts least recently accessed entries beyond this count.
	MaxEntries int

	Logger *slog.Logger
}

// Stats holds cache counters since construction.
type Stats struct {
	Hits    int64
	Misses  int64
	Writes  int64
	Faults  int64
	Entries int
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the best-effort response cache. Its methods never return storage
// errors; faults are counted and logged.
type Cache struct {
	store  Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
	faults atomic.Int64
}

// New wraps a Store.
func New(store Store, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Lookup returns the cached text for key. A storage fault, an expired entry
// and an empty cached value all count as a miss.
func (c *Cache) Lookup(key string) (string, bool) {
	entry, ok, err := c.store.Get(key)
	if err != nil {
		c.fault("get", key, err)
		c.misses.Add(1)
		return "", false
	}
	if !ok || entry.Text == "" {
		c.misses.Add(1)
		c.logger.Debug("CACHE_MISS", "key", shortKey(key))
		return "", false
	}

	if c.opts.TTL > 0 && c.now().Sub(entry.CreatedAt) > c.opts.TTL {
		if err := c.store.Delete(key); err != nil {
			c.fault("delete", key, err)
		}
		c.misses.Add(1)
		c.logger.Debug("CACHE_MISS | expired", "key", shortKey(key))
		return "", false
	}

	c.hits.Add(1)
	c.logger.Debug("CACHE_HIT", "key", shortKey(key), "bytes", len(entry.Text))
	return entry.Text, true
}

// Store records text under key and applies the eviction policy. Empty text
// is not stored.
func (c *Cache) Store(key, text string) {
	if text == "" {
		return
	}

	now := c.now()
	if err := c.store.Set(key, Entry{Text: text, CreatedAt: now, AccessedAt: now}); err != nil {
		c.fault("set", key, err)
		return
	}
	c.writes.Add(1)

	if c.opts.TTL > 0 || c.opts.MaxEntries > 0 {
		var cutoff time.Time
		if c.opts.TTL > 0 {
			cutoff = now.Add(-c.opts.TTL)
		}
		if n, err := c.store.Prune(cutoff, c.opts.MaxEntries); err != nil {
			c.fault("prune", key, err)
		} else if n > 0 {
			c.logger.Debug("CACHE_EVICT", "removed", n)
		}
	}
}

// Clear removes every entry. Unlike Lookup and Store it reports failure,
// since it is an explicit user action.
func (c *Cache) Clear() error {
	return c.store.Clear()
}

// Stats returns a snapshot of the counters and the current entry count.
func (c *Cache) Stats() Stats {
	n, err := c.store.Len()
	if err != nil {
		c.fault("len", "", err)
	}
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Writes:  c.writes.Load(),
		Faults:  c.faults.Load(),
		Entries: n,
	}
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) fault(op, key string, err error) {
	c.faults.Add(1)
	c.logger.Warn("CACHE_FAULT", "op", op, "key", shortKey(key), "error", err)
}

// shortKey trims a key for logs.
func shortKey(key string) string {
	const n = len(KeyPrefix) + 12
	if len(key) > n {
		return key[:n]
	}
	return key
}
