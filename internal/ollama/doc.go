// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// The Client implements provider.Adapter over /api/chat, whose streaming body
// is newline-delimited JSON. The per-request credential is the server base
// URL; there is no API key.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - StreamReader: NDJSON reader emitting message.content fragments
//   - Status: Result of the /api/tags reachability probe
//
// # Usage
//
//	client := ollama.NewClient()
//	status := client.CheckStatus(ctx, "http://localhost:11434")
//	if !status.OK {
//	    fmt.Println(status.Message)
//	}
//
//	stream, err := client.StreamChat(ctx, provider.Request{
//	    Model:      "llama3",
//	    Messages:   session.History(),
//	    Credential: "http://localhost:11434",
//	})
package ollama
