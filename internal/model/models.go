// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"sync"
)

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// Provider identifies one of the supported model backends.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderGemini, ProviderOpenAI, ProviderOllama}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns a human-readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGemini:
		return "Google Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderOllama:
		return "Ollama"
	default:
		return string(p)
	}
}

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := providerModels[p]
	return ok
}

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q (valid: gemini, openai, ollama)", s)
	}
	return p, nil
}

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider serves this model
	Provider Provider `json:"provider"`

	// Description is a brief explanation of the model
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

var registryMu sync.RWMutex

// providerModels is the catalog of selectable models per provider. The first
// entry of each list is the provider default.
var providerModels = map[Provider][]ModelInfo{
	ProviderGemini: {
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: ProviderGemini, Description: "Fast multimodal model"},
	},
	ProviderOpenAI: {
		{ID: "gpt-4-turbo-preview", Name: "GPT-4 Turbo", Provider: ProviderOpenAI, Description: "128K context GPT-4"},
		{ID: "gpt-4", Name: "GPT-4", Provider: ProviderOpenAI, Description: "Original GPT-4"},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: ProviderOpenAI, Description: "Fast and inexpensive"},
	},
	ProviderOllama: {
		{ID: "llama3", Name: "Llama 3", Provider: ProviderOllama, Description: "Meta Llama 3 (local)"},
		{ID: "mistral", Name: "Mistral", Provider: ProviderOllama, Description: "Mistral 7B (local)"},
		{ID: "codellama", Name: "Code Llama", Provider: ProviderOllama, Description: "Code-tuned Llama (local)"},
	},
}

// ModelsFor returns the catalog entries for a provider.
func ModelsFor(p Provider) []ModelInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := providerModels[p]
	out := make([]ModelInfo, len(models))
	copy(out, models)
	return out
}

// DefaultModel returns the default model ID for a provider, or "" if the
// provider is unknown.
func DefaultModel(p Provider) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := providerModels[p]
	if len(models) == 0 {
		return ""
	}
	return models[0].ID
}

// IsValidModel reports whether id is a catalog model of provider p.
func IsValidModel(p Provider, id string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, m := range providerModels[p] {
		if m.ID == id {
			return true
		}
	}
	return false
}

// GetModelInfo looks up a model by ID across all providers.
func GetModelInfo(id string) (ModelInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, p := range Providers {
		for _, m := range providerModels[p] {
			if m.ID == id {
				return m, true
			}
		}
	}
	return ModelInfo{}, false
}

// RegisterModel adds a model to a provider's catalog, typically a locally
// pulled Ollama model discovered through /api/tags. Registering an ID that
// is already present is a no-op. The provider default never changes.
func RegisterModel(info ModelInfo) error {
	if info.ID == "" {
		return fmt.Errorf("model id is required")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	models, ok := providerModels[info.Provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", info.Provider)
	}
	for _, m := range models {
		if m.ID == info.ID {
			return nil
		}
	}
	if info.Name == "" {
		info.Name = info.ID
	}
	providerModels[info.Provider] = append(models, info)
	return nil
}
