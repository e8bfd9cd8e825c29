// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content interprets model output for rendering.
//
// Classify decides whether a (possibly partial) response is a chart, a table,
// SECTION/BULLET structured text, or plain text. ParseAnalysisReport is the
// stricter parser for defense analysis reports. Highlight marks prompt
// injection keywords.
//
// Nothing here returns an error. Input that does not parse as a richer shape
// falls back to plain text, so every function is safe to call on each
// streamed update.
package content
