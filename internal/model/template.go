// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// SuggestedPrompt is a named system prompt offered with an attack template.
type SuggestedPrompt struct {
	Name   string `json:"name" yaml:"name"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// AttackTemplate is a catalog entry describing one attack scenario.
// Templates are read-only once loaded.
type AttackTemplate struct {
	ID                     string            `json:"id" yaml:"id"`
	Name                   string            `json:"name" yaml:"name"`
	Description            string            `json:"description" yaml:"description"`
	UserPrompt             string            `json:"userPrompt" yaml:"user_prompt"`
	Goal                   string            `json:"goal,omitempty" yaml:"goal,omitempty"`
	SuggestedSystemPrompts []SuggestedPrompt `json:"suggestedSystemPrompts" yaml:"suggested_system_prompts"`

	// Custom is set for templates loaded from the user's template directory.
	Custom bool `json:"custom,omitempty" yaml:"-"`
}

// IsAdversarial reports whether the template drives Adversarial Mode, where
// the attacker turns are generated toward Goal.
func (t AttackTemplate) IsAdversarial() bool {
	return t.Goal != ""
}

// DefaultSystemPrompt returns the first suggested system prompt, if any.
func (t AttackTemplate) DefaultSystemPrompt() (string, bool) {
	if len(t.SuggestedSystemPrompts) == 0 {
		return "", false
	}
	return t.SuggestedSystemPrompts[0].Prompt, true
}
