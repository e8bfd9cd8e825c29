// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm is the public entry point for completions.
//
// Service routes each request either to a cache replay or to the matching
// provider adapter:
//
//	request -> cache lookup -> hit:  replay cached text in paced chunks
//	                        -> miss: adapter stream -> forward + accumulate
//	                                 -> clean end: write back to cache
//
// Each call is independent. Two identical concurrent requests both reach the
// provider; the later write simply overwrites the earlier one.
package llm
