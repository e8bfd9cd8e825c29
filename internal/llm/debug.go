// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"encoding/json"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// omittedContent replaces message bodies in a debug payload.
const omittedContent = "...omitted for brevity..."

// DebugTurn is one conversation entry in a DebugPayload.
type DebugTurn struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// DebugPayload shows what the next request would contain without leaking
// the full history.
type DebugPayload struct {
	SystemPrompt        string      `json:"system_prompt"`
	ConversationHistory []DebugTurn `json:"conversation_history"`
	UserPrompt          string      `json:"user_prompt"`
}

// NewDebugPayload builds the payload for the given session state.
func NewDebugPayload(systemPrompt string, history []*model.Message, userPrompt string) DebugPayload {
	turns := make([]DebugTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, DebugTurn{Role: m.Role, Content: omittedContent})
	}
	return DebugPayload{
		SystemPrompt:        systemPrompt,
		ConversationHistory: turns,
		UserPrompt:          userPrompt,
	}
}

// JSON renders the payload indented for display.
func (p DebugPayload) JSON() string {
	data, _ := json.MarshalIndent(p, "", "  ")
	return string(data)
}

// ApplyUserInstruction appends an operator instruction to a system prompt.
func ApplyUserInstruction(systemPrompt, instruction string) string {
	return systemPrompt + "\n\n---\n\n[USER INSTRUCTION]\n" + instruction
}
