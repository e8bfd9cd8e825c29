// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

// DefaultOpenAIURL is the base URL for the OpenAI API.
const DefaultOpenAIURL = "https://api.openai.com/v1"

const networkHint = "Please check your internet connection and ensure no proxy or firewall is blocking the request."

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is an OpenAI chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for /chat/completions.
// OpenAI has no top_k parameter.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

// StreamChunk is one SSE payload of a streaming chat completion.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// apiError is the error object inside an OpenAI error envelope.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// apiErrorResponse is the OpenAI error envelope {"error": {...}}.
type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// OpenAIConfig configures the OpenAI adapter. The API key is not part of it;
// it arrives with every request.
type OpenAIConfig struct {
	BaseURL   string
	Transport provider.TransportConfig
	Logger    *slog.Logger
}

// OpenAIClient streams chat completions from OpenAI.
// It is safe for concurrent use.
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates an OpenAI adapter.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: provider.NewHTTPClient(cfg.Transport),
		logger:     logger,
	}
}

// Provider implements provider.Adapter.
func (c *OpenAIClient) Provider() model.Provider {
	return model.ProviderOpenAI
}

// StreamChat sends the system message followed by the history, unmodified,
// and streams choices[0].delta.content fragments until [DONE].
func (c *OpenAIClient) StreamChat(ctx context.Context, r provider.Request) (*provider.Stream, error) {
	apiKey := strings.TrimSpace(r.Credential)
	if apiKey == "" {
		return nil, provider.NewMissingKeyError(model.ProviderOpenAI, "OpenAI API key is missing.")
	}

	messages := make([]ChatMessage, 0, len(r.Messages)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: r.SystemPrompt})
	for _, m := range r.Messages {
		messages = append(messages, ChatMessage{Role: m.Role.String(), Content: m.GetDisplayContent()})
	}

	body, err := json.Marshal(ChatRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: r.Temperature,
		TopP:        r.TopP,
		Stream:      true,
	})
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderOpenAI, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderOpenAI, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	// CLOUD: Secure logging - fingerprint only, never headers or body.
	c.logger.Debug("API_REQUEST", "provider", model.ProviderOpenAI, "path", req.URL.Path,
		"model", r.Model, "key", provider.KeyFingerprint(apiKey))

	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, provider.TransportError(ctx, model.ProviderOpenAI, err, "Connection to OpenAI failed", networkHint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.handleErrorResponse(resp)
	}

	return provider.NewStream(ctx, func(ctx context.Context, emit provider.EmitFunc) error {
		defer resp.Body.Close()
		return c.processStream(ctx, resp.Body, emit)
	}), nil
}

// processStream reads the SSE body. [DONE] or end of body finishes cleanly.
func (c *OpenAIClient) processStream(ctx context.Context, body io.Reader, emit provider.EmitFunc) error {
	reader := NewSSEReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return provider.TransportError(ctx, model.ProviderOpenAI, err, "OpenAI stream interrupted", "")
		}

		if IsDone(data) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			c.logger.Warn("STREAM_PARSE | skipping malformed chunk",
				"provider", model.ProviderOpenAI, "line", reader.Line(), "error", err)
			continue
		}

		if chunk.Error != nil && chunk.Error.Message != "" {
			return &provider.ClientError{
				Type:     provider.ErrTypeUnknown,
				Provider: model.ProviderOpenAI,
				Message:  "OpenAI API Error: " + chunk.Error.Message,
			}
		}

		if content := chunk.GetContent(); content != "" {
			if err := emit(content); err != nil {
				return err
			}
		}
	}
}

// handleErrorResponse converts a non-2xx response into a ProviderHttpError
// carrying the status and the envelope's error.message.
func (c *OpenAIClient) handleErrorResponse(resp *http.Response) error {
	text := strings.TrimSpace(provider.ReadErrorBody(resp.Body))

	var apiErr apiErrorResponse
	if err := json.Unmarshal([]byte(text), &apiErr); err == nil && apiErr.Error.Message != "" {
		text = apiErr.Error.Message
	}

	return provider.NewHTTPError(model.ProviderOpenAI, resp.StatusCode,
		fmt.Sprintf("OpenAI API Error: %d %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), text))
}

// Compile-time interface check.
var _ provider.Adapter = (*OpenAIClient)(nil)
