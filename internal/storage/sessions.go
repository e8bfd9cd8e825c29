// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/util"
)

const (
	// DefaultMaxHistory bounds the number of archived sessions kept on disk.
	DefaultMaxHistory = 100

	activeFile  = "active.json"
	historyFile = "history.json"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists the active session and the archive of cleared
// sessions. History is ordered most recent first.
type SessionStore struct {
	// BaseDir is the directory holding active.json and history.json.
	// Default: ~/.glyphbreaker/sessions/
	BaseDir string

	// MaxHistory limits archived sessions (0 = unlimited).
	MaxHistory int

	mu sync.Mutex
}

// DefaultDir returns ~/.glyphbreaker/sessions.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".glyphbreaker", "sessions"), nil
}

// NewSessionStore creates a store under the default directory.
func NewSessionStore() (*SessionStore, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithDir(dir)
}

// NewSessionStoreWithDir creates a store with a custom directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	return &SessionStore{
		BaseDir:    baseDir,
		MaxHistory: DefaultMaxHistory,
	}, nil
}

// =============================================================================
// ACTIVE SESSION
// =============================================================================

// LoadActive returns the persisted active session. ErrSessionNotFound means
// nothing has been saved yet.
func (s *SessionStore) LoadActive() (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess model.Session
	if err := s.readJSON(activeFile, &sess); err != nil {
		return nil, err
	}
	if sess.Messages == nil {
		sess.Messages = make([]*model.Message, 0)
	}
	return &sess, nil
}

// LoadOrCreateActive returns the active session, starting a fresh one with
// the given prompt and settings when none is stored.
func (s *SessionStore) LoadOrCreateActive(systemPrompt string, cfg model.LlmConfig) (*model.Session, error) {
	sess, err := s.LoadActive()
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	sess = model.NewSession(systemPrompt, cfg)
	if err := s.SaveActive(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveActive persists the active session.
func (s *SessionStore) SaveActive(sess *model.Session) error {
	if sess == nil {
		return &SessionError{Message: "cannot save nil session"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(activeFile, sess)
}

// =============================================================================
// HISTORY
// =============================================================================

// History returns archived sessions, most recent first.
func (s *SessionStore) History() ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistory()
}

// Clear archives the given session if it has messages and replaces the
// active session with a fresh one using the given prompt and settings.
func (s *SessionStore) Clear(current *model.Session, systemPrompt string, cfg model.LlmConfig) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current != nil && !current.IsEmpty() {
		if err := s.archive(current); err != nil {
			return nil, err
		}
	}

	fresh := model.NewSession(systemPrompt, cfg)
	if err := s.writeJSON(activeFile, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Restore removes the session with the given ID from history and makes it
// active. A non-empty current session is archived first so it is not lost.
func (s *SessionStore) Restore(id string, current *model.Session) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return nil, err
	}

	idx := indexOf(history, id)
	if idx < 0 {
		return nil, ErrSessionNotFound
	}
	restored := history[idx]
	history = append(history[:idx], history[idx+1:]...)

	if current != nil && !current.IsEmpty() && current.ID != id {
		history = append([]*model.Session{current}, history...)
		history = s.trim(history)
	}

	if err := s.writeJSON(historyFile, history); err != nil {
		return nil, err
	}
	if err := s.writeJSON(activeFile, restored); err != nil {
		return nil, err
	}
	return restored, nil
}

// RestoreByIndex restores the history entry at index (0 = most recent).
func (s *SessionStore) RestoreByIndex(index int, current *model.Session) (*model.Session, error) {
	history, err := s.History()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(history) {
		return nil, ErrSessionNotFound
	}
	return s.Restore(history[index].ID, current)
}

// Delete removes an archived session by ID.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	idx := indexOf(history, id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	history = append(history[:idx], history[idx+1:]...)
	return s.writeJSON(historyFile, history)
}

// ClearHistory removes every archived session. The active session is kept.
func (s *SessionStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.BaseDir, historyFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// archive pushes sess to the front of history, replacing an older copy with
// the same ID. Callers hold s.mu.
func (s *SessionStore) archive(sess *model.Session) error {
	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	if idx := indexOf(history, sess.ID); idx >= 0 {
		history = append(history[:idx], history[idx+1:]...)
	}
	history = append([]*model.Session{sess}, history...)
	return s.writeJSON(historyFile, s.trim(history))
}

func (s *SessionStore) trim(history []*model.Session) []*model.Session {
	if s.MaxHistory > 0 && len(history) > s.MaxHistory {
		return history[:s.MaxHistory]
	}
	return history
}

func (s *SessionStore) loadHistory() ([]*model.Session, error) {
	var history []*model.Session
	if err := s.readJSON(historyFile, &history); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return []*model.Session{}, nil
		}
		return nil, err
	}
	if history == nil {
		history = []*model.Session{}
	}
	return history, nil
}

func (s *SessionStore) readJSON(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.BaseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// writeJSON writes with 0600 since sessions hold attack prompts and replies.
func (s *SessionStore) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(s.BaseDir, name), data, 0600)
}

func indexOf(history []*model.Session, id string) int {
	for i, sess := range history {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// FormatSessionList renders archived sessions as a numbered list for the
// /history command.
func FormatSessionList(history []*model.Session) string {
	if len(history) == 0 {
		return "No saved sessions."
	}

	var sb strings.Builder
	sb.WriteString("Saved sessions:\n")
	for i, sess := range history {
		preview := sess.Preview(60)
		if preview == "" {
			preview = "(no user messages)"
		}
		sb.WriteString("  [")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("] ")
		sb.WriteString(sess.Name)
		sb.WriteString(" (")
		sb.WriteString(strconv.Itoa(len(sess.Messages)))
		sb.WriteString(" msgs, ")
		sb.WriteString(sess.UpdatedAt.Format("Jan 2 15:04"))
		sb.WriteString(")\n      ")
		sb.WriteString(preview)
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session storage error.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
