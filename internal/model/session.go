// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages kept in a session.
// When exceeded, the oldest messages are pruned.
const MaxMessages = 1000

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one red-teaming conversation with its prompt and model settings.
type Session struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"systemPrompt"`
	LlmConfig    LlmConfig  `json:"llmConfig"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewSession creates an empty session named after its creation time.
func NewSession(systemPrompt string, cfg LlmConfig) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		Name:         fmt.Sprintf("Session %s", now.Format("2006-01-02 15:04:05")),
		Messages:     make([]*Message, 0),
		SystemPrompt: systemPrompt,
		LlmConfig:    cfg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddMessage appends a message to the session.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	if len(s.Messages) > MaxMessages {
		s.Messages = s.Messages[len(s.Messages)-MaxMessages:]
	}
}

// AddUserMessage appends a new user message and returns it.
func (s *Session) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	s.AddMessage(msg)
	return msg
}

// AddAssistantMessage appends a new streaming assistant message and returns it.
func (s *Session) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	s.AddMessage(msg)
	return msg
}

// History returns the messages that form the conversation sent to a
// provider: everything except a still-streaming tail and failed replies.
func (s *Session) History() []*Message {
	out := make([]*Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.IsStreaming || m.Failed {
			continue
		}
		out = append(out, m)
	}
	return out
}

// IsEmpty returns true if the session has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// MessageByID returns the message with the given ID, or nil.
func (s *Session) MessageByID(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Preview returns the first user message, truncated, for history listings.
func (s *Session) Preview(maxLen int) string {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m.Preview(maxLen)
		}
	}
	return ""
}
