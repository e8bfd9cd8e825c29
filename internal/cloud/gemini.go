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
	"net/url"
	"strings"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

const (
	// DefaultGeminiURL is the base URL for the Generative Language API.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com"

	// DefaultGeminiAPIVersion is the REST version path segment.
	DefaultGeminiAPIVersion = "v1beta"

	geminiMissingKey = "Gemini API key not configured. Please set the API_KEY environment variable."
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Part is one text part of a Gemini content block.
type Part struct {
	Text string `json:"text"`
}

// Content is a role-tagged content block. Gemini roles are "user" and "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig carries the sampling parameters.
type GenerationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        *int    `json:"topK,omitempty"`
}

// GenerateRequest is the body of a streamGenerateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateChunk is one SSE payload of a streaming response.
type GenerateChunk struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error *geminiError `json:"error,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (c *GenerateChunk) Text() string {
	if len(c.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiErrorResponse struct {
	Error geminiError `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// GeminiConfig configures the Gemini adapter. Unlike the other providers the
// key is process-wide and supplied once.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Transport  provider.TransportConfig
	Logger     *slog.Logger
}

// GeminiClient streams generateContent responses from Gemini.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a Gemini adapter. It fails with a configuration
// error when no API key is configured.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, provider.NewMissingKeyError(model.ProviderGemini, geminiMissingKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultGeminiAPIVersion
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		apiKey:     key,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		httpClient: provider.NewHTTPClient(cfg.Transport),
		logger:     logger,
	}, nil
}

// Provider implements provider.Adapter.
func (c *GeminiClient) Provider() model.Provider {
	return model.ProviderGemini
}

// BuildContents converts the history into Gemini contents. Whitespace-only
// messages are dropped, assistant becomes "model", and consecutive messages
// of the same role are merged with a blank line since Gemini rejects
// repeated roles.
func BuildContents(messages []*model.Message) []Content {
	contents := make([]Content, 0, len(messages))
	for _, m := range messages {
		text := m.GetDisplayContent()
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := "user"
		if m.Role == model.RoleAssistant {
			role = "model"
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			last := &contents[n-1].Parts[0]
			last.Text += "\n\n" + text
			continue
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: text}}})
	}
	return contents
}

// StreamChat implements provider.Adapter. r.Credential is ignored.
func (c *GeminiClient) StreamChat(ctx context.Context, r provider.Request) (*provider.Stream, error) {
	contents := BuildContents(r.Messages)
	if len(contents) == 0 {
		return nil, &provider.ClientError{
			Type:     provider.ErrTypeInvalidRequest,
			Provider: model.ProviderGemini,
			Code:     provider.ErrNoMessages.Code,
			Message:  "Cannot send an empty conversation to Gemini.",
		}
	}

	greq := GenerateRequest{
		Contents: contents,
		GenerationConfig: &GenerationConfig{
			Temperature: r.Temperature,
			TopP:        r.TopP,
			TopK:        r.TopK,
		},
	}
	if r.SystemPrompt != "" {
		greq.SystemInstruction = &Content{Parts: []Part{{Text: r.SystemPrompt}}}
	}

	body, err := json.Marshal(greq)
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderGemini, Message: "failed to marshal request", Cause: err}
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:streamGenerateContent?alt=sse",
		c.baseURL, c.apiVersion, url.PathEscape(r.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderGemini, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("API_REQUEST", "provider", model.ProviderGemini, "model", r.Model,
		"contents", len(contents), "key", provider.KeyFingerprint(c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(ctx, model.ProviderGemini, err, "Connection to Gemini failed", networkHint)
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

func (c *GeminiClient) processStream(ctx context.Context, body io.Reader, emit provider.EmitFunc) error {
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
			return provider.TransportError(ctx, model.ProviderGemini, err, "Gemini stream interrupted", "")
		}

		var chunk GenerateChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			c.logger.Warn("STREAM_PARSE | skipping malformed chunk",
				"provider", model.ProviderGemini, "line", reader.Line(), "error", err)
			continue
		}

		if chunk.Error != nil && chunk.Error.Message != "" {
			return &provider.ClientError{
				Type:     provider.ErrTypeUnknown,
				Provider: model.ProviderGemini,
				Message:  "Gemini API Error: " + chunk.Error.Message,
			}
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return &provider.ClientError{
				Type:     provider.ErrTypeUnknown,
				Provider: model.ProviderGemini,
				Code:     "blocked",
				Message:  "Gemini blocked the prompt: " + chunk.PromptFeedback.BlockReason,
			}
		}

		if text := chunk.Text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
}

// handleErrorResponse unwraps {"error": {...}} or [{"error": {...}}].
func (c *GeminiClient) handleErrorResponse(resp *http.Response) error {
	text := strings.TrimSpace(provider.ReadErrorBody(resp.Body))

	var single geminiErrorResponse
	var list []geminiErrorResponse
	switch {
	case json.Unmarshal([]byte(text), &single) == nil && single.Error.Message != "":
		text = single.Error.Message
	case json.Unmarshal([]byte(text), &list) == nil && len(list) > 0 && list[0].Error.Message != "":
		text = list[0].Error.Message
	}

	return provider.NewHTTPError(model.ProviderGemini, resp.StatusCode,
		fmt.Sprintf("Gemini API Error: %d %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), text))
}

// Compile-time interface check.
var _ provider.Adapter = (*GeminiClient)(nil)
