// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache memoizes complete completion texts keyed by every input that
// influences them.
//
// The cache is best-effort. Storage faults on read behave as a miss and
// faults on write are logged and dropped, so a broken store degrades to no
// caching rather than to a visible failure.
//
// Three backends implement Store:
//   - MemoryStore: process-local map, lost on exit
//   - FileStore: a single JSON file written atomically
//   - SQLiteStore: a pure Go SQLite database (modernc.org/sqlite)
//
// Keys never include credentials.
package cache
