// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the hosted provider adapters: OpenAI chat
// completions and Google Gemini streamGenerateContent.
//
// Both speak Server-Sent Events and share SSEReader. Each decodes its own
// chunk schema; a malformed chunk is logged and skipped, never fatal.
//
// # Key Types
//
//   - OpenAIClient: provider.Adapter for /v1/chat/completions
//   - GeminiClient: provider.Adapter for models/{model}:streamGenerateContent
//   - SSEReader: Line-oriented "data:" payload reader
//
// # Usage
//
//	gemini, err := cloud.NewGeminiClient(cloud.GeminiConfig{APIKey: key})
//	if err != nil {
//	    return err // missing key is a configuration error
//	}
//	stream, err := gemini.StreamChat(ctx, req)
//
// # Security
//
// API keys are sent only in request headers. They are never logged; log
// lines carry a short SHA-256 fingerprint instead. All requests use TLS 1.2+.
package cloud
