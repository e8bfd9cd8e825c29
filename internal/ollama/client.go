// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

// corsHint is appended to every connectivity failure. A locally hosted
// Ollama rejecting cross-origin requests is the usual cause.
const corsHint = "This is often a CORS issue. Please ensure your Ollama server is running and " +
	"configured to accept requests from this origin. See the Ollama documentation for " +
	"setting the OLLAMA_ORIGINS environment variable."

// Probe messages returned by CheckStatus.
const (
	StatusInvalidURL = "Invalid URL. It must start with http:// or https://"
	StatusOK         = "Connection to Ollama successful."
	StatusCORS       = "Connection failed. This is likely a CORS issue or the server is not running. " +
		"Set OLLAMA_ORIGINS on the Ollama server to allow this client."
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is used when a request carries no base URL (default: http://localhost:11434)
	BaseURL string

	// DefaultModel to use if none specified (default: "llama3")
	DefaultModel string

	// ProbeTimeout bounds CheckStatus and ListModels (default: 5s)
	ProbeTimeout time.Duration

	// Transport bounds connect and header wait for streaming requests
	Transport provider.TransportConfig

	// Logger receives stream parse warnings (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      model.DefaultOllamaURL,
		DefaultModel: model.DefaultModel(model.ProviderOllama),
		ProbeTimeout: 5 * time.Second,
		Transport:    provider.DefaultTransportConfig(),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// It implements provider.Adapter; the Request credential is the base URL.
//
// The Client is safe for concurrent use.
type Client struct {
	config      *ClientConfig
	httpClient  *http.Client
	probeClient *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = model.DefaultOllamaURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = model.DefaultModel(model.ProviderOllama)
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:      config,
		httpClient:  provider.NewHTTPClient(config.Transport),
		probeClient: &http.Client{Timeout: config.ProbeTimeout},
		logger:      logger,
	}
}

// Provider implements provider.Adapter.
func (c *Client) Provider() model.Provider {
	return model.ProviderOllama
}

// resolveBaseURL returns the request base URL or the configured default,
// validated and without a trailing slash.
func (c *Client) resolveBaseURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = c.config.BaseURL
	}
	if !validBaseURL(raw) {
		return "", provider.NewConfigurationError(model.ProviderOllama, StatusInvalidURL)
	}
	return strings.TrimRight(raw, "/"), nil
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckStatus probes GET {baseURL}/api/tags. It never returns an error; the
// outcome is described by Status with one message per failure class:
// invalid URL, HTTP error status, or network failure.
func (c *Client) CheckStatus(ctx context.Context, baseURL string) Status {
	if !validBaseURL(baseURL) {
		return Status{OK: false, Message: StatusInvalidURL}
	}
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{OK: false, Message: StatusInvalidURL}
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return Status{OK: false, Message: StatusCORS}
		}
		return Status{OK: false, Message: "An unknown network error occurred: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{OK: false, Message: fmt.Sprintf("Server responded with status %d. Check the URL.", resp.StatusCode)}
	}
	return Status{OK: true, Message: StatusOK}
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally pulled models.
func (c *Client) ListModels(ctx context.Context, baseURL string) ([]ModelInfo, error) {
	base, err := c.resolveBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderOllama, Message: "failed to create request", Cause: err}
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(ctx, model.ProviderOllama, err, "Connection to Ollama at "+base+" failed", corsHint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeUnknown, Provider: model.ProviderOllama, Message: "failed to decode model list", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat sends the system prompt plus the full history to /api/chat and
// streams message.content fragments. With no messages the stream is empty
// and no request is made.
func (c *Client) StreamChat(ctx context.Context, r provider.Request) (*provider.Stream, error) {
	base, err := c.resolveBaseURL(r.Credential)
	if err != nil {
		return nil, err
	}
	if len(r.Messages) == 0 {
		return provider.FromStrings(ctx), nil
	}

	modelName := r.Model
	if modelName == "" {
		modelName = c.config.DefaultModel
	}

	reqBody := ChatRequest{
		Model:    modelName,
		Messages: buildMessages(r.SystemPrompt, r.Messages),
		Stream:   true,
		Options: &Options{
			Temperature: r.Temperature,
			TopP:        r.TopP,
		},
	}
	if r.TopK != nil {
		reqBody.Options.TopK = *r.TopK
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderOllama, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ClientError{Type: provider.ErrTypeInvalidRequest, Provider: model.ProviderOllama, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	// SECURITY: TLS not required - Ollama usually runs on localhost over HTTP
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(ctx, model.ProviderOllama, err, "Connection to Ollama at "+base+" failed", corsHint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, httpError(resp)
	}

	c.logger.Debug("STREAM_OPEN", "provider", model.ProviderOllama, "model", modelName, "messages", len(r.Messages))

	return provider.NewStream(ctx, func(ctx context.Context, emit provider.EmitFunc) error {
		defer resp.Body.Close()
		return NewStreamReader(resp.Body, c.logger).Process(ctx, emit)
	}), nil
}

// buildMessages puts the system prompt first, then the history unmodified.
func buildMessages(systemPrompt string, history []*model.Message) []Message {
	out := make([]Message, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, Message{Role: "system", Content: systemPrompt})
	}
	for _, m := range history {
		out = append(out, Message{Role: m.Role.String(), Content: m.GetDisplayContent()})
	}
	return out
}

// httpError builds the error for a non-2xx status, carrying the body text.
func httpError(resp *http.Response) error {
	text := strings.TrimSpace(provider.ReadErrorBody(resp.Body))

	// Prefer the structured {"error": "..."} body when present.
	var ollamaErr OllamaError
	if err := json.Unmarshal([]byte(text), &ollamaErr); err == nil && ollamaErr.Error != "" {
		text = ollamaErr.Error
	}

	return provider.NewHTTPError(model.ProviderOllama, resp.StatusCode,
		fmt.Sprintf("Ollama API Error: %d %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), text))
}

// Compile-time interface check.
var _ provider.Adapter = (*Client)(nil)
