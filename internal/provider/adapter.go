// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// Request is a provider-agnostic completion request.
type Request struct {
	Model        string
	SystemPrompt string

	// Messages is the ordered conversation. Adapters read it before
	// StreamChat returns and never modify it.
	Messages []*model.Message

	Temperature float64
	TopP        float64
	TopK        *int

	// Credential is the per-call secret: the OpenAI API key or the Ollama
	// base URL. Gemini receives its key at construction and ignores it.
	Credential string
}

// NewRequest builds a Request from a session-level configuration.
func NewRequest(cfg model.LlmConfig, systemPrompt string, messages []*model.Message, credential string) Request {
	return Request{
		Model:        cfg.Model,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		TopK:         cfg.TopK,
		Credential:   credential,
	}
}

// Adapter translates a Request into one provider's wire protocol.
//
// StreamChat returns an error for failures detected before the response body
// is read (missing credentials, connectivity, non-2xx status). Failures after
// that terminate the returned Stream. Adapters never retry.
type Adapter interface {
	Provider() model.Provider
	StreamChat(ctx context.Context, req Request) (*Stream, error)
}

// KeyFingerprint returns a short, non-reversible identifier for a secret,
// safe to log in place of the secret itself.
func KeyFingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}
