// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// KeyPrefix namespaces cache keys inside a shared store.
const KeyPrefix = "llm-cache-"

// keyMaterial is the canonical form hashed into a key. Field order is fixed
// by the struct, so encoding/json output is stable for equal inputs.
type keyMaterial struct {
	Provider     model.Provider `json:"provider"`
	Model        string         `json:"model"`
	SystemPrompt string         `json:"systemPrompt"`
	History      [][2]string    `json:"history"`
	Temperature  float64        `json:"temperature"`
	TopP         float64        `json:"topP"`
	TopK         *int           `json:"topK"`
}

// DeriveKey returns the deterministic cache key for a request. Any change to
// the provider, model, system prompt, any message role or content, the
// message count, temperature, topP or topK yields a different key.
func DeriveKey(cfg model.LlmConfig, systemPrompt string, messages []*model.Message) string {
	history := make([][2]string, 0, len(messages))
	for _, m := range messages {
		history = append(history, [2]string{m.Role.Initial(), m.GetDisplayContent()})
	}

	material := keyMaterial{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		SystemPrompt: systemPrompt,
		History:      history,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		TopK:         cfg.TopK,
	}

	// Marshal cannot fail for this type.
	data, _ := json.Marshal(material)
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}
