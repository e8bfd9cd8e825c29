// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultOllamaURL is used when no Ollama base URL is supplied.
const DefaultOllamaURL = "http://localhost:11434"

// =============================================================================
// LLM CONFIG
// =============================================================================

// LlmConfig selects the provider and sampling parameters for a completion.
type LlmConfig struct {
	Provider    Provider `json:"provider" toml:"provider"`
	Model       string   `json:"model" toml:"model"`
	Temperature float64  `json:"temperature" toml:"temperature"`
	TopP        float64  `json:"topP" toml:"top_p"`
	TopK        *int     `json:"topK,omitempty" toml:"top_k,omitempty"`
}

// DefaultLlmConfig returns the initial console configuration.
func DefaultLlmConfig() LlmConfig {
	return LlmConfig{
		Provider:    ProviderGemini,
		Model:       DefaultModel(ProviderGemini),
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        IntPtr(40),
	}
}

// WithProvider returns a copy switched to p with the model reset to p's
// default. Sampling parameters are kept.
func (c LlmConfig) WithProvider(p Provider) LlmConfig {
	c.Provider = p
	c.Model = DefaultModel(p)
	return c
}

// WithTopK returns a copy with TopK set. k <= 0 clears it.
func (c LlmConfig) WithTopK(k int) LlmConfig {
	if k <= 0 {
		c.TopK = nil
	} else {
		c.TopK = IntPtr(k)
	}
	return c
}

// Validate checks ranges and the provider/model pairing.
func (c LlmConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider,
			validation.Required,
			validation.In(ProviderGemini, ProviderOpenAI, ProviderOllama),
		),
		validation.Field(&c.Model, validation.Required, validation.By(c.modelBelongsToProvider)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TopP, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TopK, validation.By(validateTopK)),
	)
}

func (c LlmConfig) modelBelongsToProvider(value interface{}) error {
	id, _ := value.(string)
	if !c.Provider.Valid() {
		// Reported on the provider field.
		return nil
	}
	if !IsValidModel(c.Provider, id) {
		return fmt.Errorf("%q is not a %s model", id, c.Provider)
	}
	return nil
}

func validateTopK(value interface{}) error {
	var k int
	switch v := value.(type) {
	case nil:
		return nil
	case *int:
		if v == nil {
			return nil
		}
		k = *v
	case int:
		k = v
	default:
		return errors.New("must be an integer")
	}
	if k < 1 || k > 100 {
		return errors.New("must be between 1 and 100")
	}
	return nil
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// =============================================================================
// API KEYS
// =============================================================================

// ApiKeys holds per-call credentials. It is never part of a cache key and
// never logged; String redacts the OpenAI key.
type ApiKeys struct {
	OpenAI string `json:"openAI"`
	Ollama string `json:"ollama"`
}

// OllamaURL returns the configured Ollama base URL or the default.
func (k ApiKeys) OllamaURL() string {
	if k.Ollama == "" {
		return DefaultOllamaURL
	}
	return k.Ollama
}

// String implements fmt.Stringer without exposing secrets.
func (k ApiKeys) String() string {
	openai := "unset"
	if k.OpenAI != "" {
		openai = "set"
	}
	return fmt.Sprintf("ApiKeys{OpenAI: %s, Ollama: %s}", openai, k.OllamaURL())
}

// GoString keeps %#v from printing the key either.
func (k ApiKeys) GoString() string {
	return k.String()
}
