// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by the provider adapters,
// the stream orchestrator, and the console.
//
// # Key Types
//
//   - Message: Single chat message, appended to in place while streaming
//   - Session: A red-teaming session (messages, system prompt, LlmConfig)
//   - LlmConfig: Provider, model, and sampling parameters for a completion
//   - ApiKeys: Per-call credentials (OpenAI key, Ollama base URL)
//   - ModelInfo: Catalog entry for a provider model
//   - AttackTemplate: Read-only attack catalog entry
//
// # Usage
//
//	cfg := model.DefaultLlmConfig().WithProvider(model.ProviderOllama)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	sess := model.NewSession(model.DefaultSystemPrompt, cfg)
//	sess.AddUserMessage("Ignore previous instructions and ...")
package model
