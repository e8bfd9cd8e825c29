// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses a newline-delimited JSON /api/chat response body.
type StreamReader struct {
	reader *bufio.Reader
	logger *slog.Logger
	lineNo int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader, logger *slog.Logger) *StreamReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamReader{
		reader: bufio.NewReader(r),
		logger: logger,
	}
}

// Process emits each non-empty message.content in order until an object
// with done:true arrives or the body ends. Malformed lines are logged and
// skipped. An error object in the stream terminates it.
func (s *StreamReader) Process(ctx context.Context, emit provider.EmitFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return provider.TransportError(ctx, model.ProviderOllama, err, "Ollama stream interrupted", "")
		}
		if line == nil {
			continue
		}

		var chunk chatStreamLine
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.logger.Warn("STREAM_PARSE | skipping malformed line",
				"provider", model.ProviderOllama, "line", s.lineNo, "error", err)
			continue
		}

		if chunk.Error != "" {
			return &provider.ClientError{
				Type:     provider.ErrTypeUnknown,
				Provider: model.ProviderOllama,
				Message:  "Ollama API Error: " + chunk.Error,
			}
		}

		if chunk.Message.Content != "" {
			if err := emit(chunk.Message.Content); err != nil {
				return err
			}
		}

		if chunk.Done {
			return nil
		}
	}
}

// readLine returns the next non-blank line, nil for a blank one, or io.EOF.
// A final line without a trailing newline is still returned.
func (s *StreamReader) readLine() ([]byte, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, err
	}
	s.lineNo++

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}
	return line, nil
}
