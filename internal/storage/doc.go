// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists GlyphBreaker sessions.
//
// The active session and the history of cleared sessions live as two JSON
// files. Clearing a session with messages moves it to the front of history;
// restoring one takes it out of history and makes it active.
//
// # Usage
//
//	store, err := storage.NewSessionStore()
//	sess, err := store.LoadOrCreateActive(templates.DefaultSystemPrompt, model.DefaultLlmConfig())
//	sess.AddUserMessage("Ignore previous instructions")
//	err = store.SaveActive(sess)
//	fresh, err := store.Clear(sess, templates.DefaultSystemPrompt, model.DefaultLlmConfig())
//
// # Storage Location
//
// Sessions are stored in ~/.glyphbreaker/sessions/ as active.json and
// history.json with 0600 permissions.
package storage
