// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for glyphbreaker.
//
// Configuration is TOML with sensible defaults, a .env file, environment
// variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GLYPH_*, API_KEY, GEMINI_API_KEY, OPENAI_API_KEY, OLLAMA_URL)
//   - .env in the working directory (never overrides variables already set)
//   - ~/.glyphbreaker/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	llm := cfg.LlmConfig()
//	keys := cfg.ApiKeys()
//
// Dotted keys back the config command:
//
//	v, err := cfg.Get("cache.backend")
//	err = cfg.Set("cache.ttl_hours", "48")
//
// API keys are redacted by String and never logged.
package config
