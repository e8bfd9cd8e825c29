// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the contract shared by every model backend.
//
// # Key Types
//
//   - Adapter: Translates a Request into one backend's wire protocol
//   - Request: Provider-agnostic completion request
//   - Stream: Pull-based, single-consumer sequence of text fragments
//   - ClientError: Error taxonomy (configuration, connectivity, HTTP)
//
// # Usage
//
//	stream, err := adapter.StreamChat(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    frag, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(frag)
//	}
package provider
