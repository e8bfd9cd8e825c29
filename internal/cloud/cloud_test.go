// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func msgs(pairs ...string) []*model.Message {
	out := make([]*model.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.NewMessage(model.Role(pairs[i]), pairs[i+1]))
	}
	return out
}

// =============================================================================
// SSE READER
// =============================================================================

func TestSSEReader(t *testing.T) {
	body := "event: message\ndata: {\"a\":1}\n\n: comment\ndata:{\"b\":2}\r\ndata: \n\ndata: [DONE]"
	r := NewSSEReader(strings.NewReader(body))

	var got []string
	for {
		data, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, string(data))
	}

	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, "[DONE]"}, got)
	assert.True(t, IsDone([]byte(got[2])))
	assert.False(t, IsDone([]byte(got[0])))
}

// =============================================================================
// OPENAI
// =============================================================================

func TestOpenAI_StreamChat(t *testing.T) {
	var gotReq ChatRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		io.WriteString(w, "data: {not json\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"after done\"}}]}\n\n")
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL + "/", Logger: quietLogger()})
	req := provider.Request{
		Model:        "gpt-4",
		SystemPrompt: "be terse",
		Messages:     msgs("user", "hi", "assistant", "yo", "user", "again"),
		Temperature:  0,
		TopP:         0.9,
		TopK:         model.IntPtr(40),
		Credential:   "sk-test",
	}

	stream, err := c.StreamChat(context.Background(), req)
	require.NoError(t, err)
	text, err := provider.Collect(stream)
	require.NoError(t, err)

	assert.Equal(t, "Hello", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.True(t, gotReq.Stream)
	assert.Equal(t, 0.9, gotReq.TopP)
	require.Len(t, gotReq.Messages, 4)
	assert.Equal(t, ChatMessage{Role: "system", Content: "be terse"}, gotReq.Messages[0])
	assert.Equal(t, "assistant", gotReq.Messages[2].Role)
}

func TestOpenAI_MissingKey(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{Logger: quietLogger()})
	_, err := c.StreamChat(context.Background(), provider.Request{Model: "gpt-4", Messages: msgs("user", "hi"), Credential: "  "})

	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrMissingAPIKey))
	assert.Equal(t, "OpenAI API key is missing.", err.Error())
}

func TestOpenAI_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Logger: quietLogger()})
	_, err := c.StreamChat(context.Background(), provider.Request{Model: "gpt-4", Messages: msgs("user", "hi"), Credential: "bad"})

	require.Error(t, err)
	assert.True(t, provider.IsHTTP(err))
	assert.Equal(t, 401, provider.StatusCode(err))
	assert.Equal(t, "OpenAI API Error: 401 Unauthorized - Incorrect API key provided", err.Error())
}

func TestOpenAI_RawErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Logger: quietLogger()})
	_, err := c.StreamChat(context.Background(), provider.Request{Model: "gpt-4", Messages: msgs("user", "hi"), Credential: "k"})

	require.Error(t, err)
	assert.Equal(t, "OpenAI API Error: 502 Bad Gateway - upstream down", err.Error())
}

func TestOpenAI_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: url, Logger: quietLogger()})
	_, err := c.StreamChat(context.Background(), provider.Request{Model: "gpt-4", Messages: msgs("user", "hi"), Credential: "k"})

	require.Error(t, err)
	assert.True(t, provider.IsConnectivity(err))
	assert.Contains(t, err.Error(), "Connection to OpenAI failed")
	assert.Contains(t, err.Error(), "firewall")
}

func TestOpenAI_StreamErrorIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		io.WriteString(w, "data: {\"error\":{\"message\":\"server overloaded\"}}\n\n")
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Logger: quietLogger()})
	stream, err := c.StreamChat(context.Background(), provider.Request{Model: "gpt-4", Messages: msgs("user", "hi"), Credential: "k"})
	require.NoError(t, err)

	text, err := provider.Collect(stream)
	assert.Equal(t, "partial", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server overloaded")
}

// =============================================================================
// GEMINI
// =============================================================================

func TestNewGeminiClient_MissingKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{Logger: quietLogger()})
	require.Error(t, err)
	assert.True(t, provider.IsConfiguration(err))
	assert.True(t, errors.Is(err, provider.ErrMissingAPIKey))
	assert.Equal(t, "Gemini API key not configured. Please set the API_KEY environment variable.", err.Error())
}

func TestBuildContents(t *testing.T) {
	tests := []struct {
		name string
		in   []*model.Message
		want []Content
	}{
		{
			name: "coalesces same role",
			in:   msgs("user", "a", "user", "b", "assistant", "c"),
			want: []Content{
				{Role: "user", Parts: []Part{{Text: "a\n\nb"}}},
				{Role: "model", Parts: []Part{{Text: "c"}}},
			},
		},
		{
			name: "drops whitespace-only then coalesces across the gap",
			in:   msgs("user", "a", "assistant", "  \n", "user", "b"),
			want: []Content{
				{Role: "user", Parts: []Part{{Text: "a\n\nb"}}},
			},
		},
		{
			name: "alternating unchanged",
			in:   msgs("user", "q", "assistant", "r", "user", "s"),
			want: []Content{
				{Role: "user", Parts: []Part{{Text: "q"}}},
				{Role: "model", Parts: []Part{{Text: "r"}}},
				{Role: "user", Parts: []Part{{Text: "s"}}},
			},
		},
		{
			name: "all blank",
			in:   msgs("user", " ", "assistant", ""),
			want: []Content{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildContents(tt.in))
		})
	}
}

func TestGemini_StreamChat(t *testing.T) {
	var gotReq GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"SECTION: \"}]}}]}\r\n\r\n")
		io.WriteString(w, "data: garbage\r\n\r\n")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Intro\"}]},\"finishReason\":\"STOP\"}]}\r\n\r\n")
	}))
	defer server.Close()

	c, err := NewGeminiClient(GeminiConfig{APIKey: "g-key", BaseURL: server.URL, Logger: quietLogger()})
	require.NoError(t, err)

	stream, err := c.StreamChat(context.Background(), provider.Request{
		Model:        "gemini-2.5-flash",
		SystemPrompt: "sys",
		Messages:     msgs("user", "a", "user", "b"),
		Temperature:  0.7,
		TopP:         0.95,
		TopK:         model.IntPtr(40),
	})
	require.NoError(t, err)
	text, err := provider.Collect(stream)
	require.NoError(t, err)

	assert.Equal(t, "SECTION: Intro", text)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "a\n\nb", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "sys", gotReq.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gotReq.GenerationConfig.TopK)
	assert.Equal(t, 40, *gotReq.GenerationConfig.TopK)
}

func TestGemini_NoMessages(t *testing.T) {
	c, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1", Logger: quietLogger()})
	require.NoError(t, err)

	_, err = c.StreamChat(context.Background(), provider.Request{Model: "gemini-2.5-flash", Messages: msgs("user", "   ")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrNoMessages))
}

func TestGemini_HTTPError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, "API key not valid"},
		{"array", `[{"error":{"code":400,"message":"Invalid topK","status":"INVALID_ARGUMENT"}}]`, "Invalid topK"},
		{"raw", `bad things`, "bad things"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL, Logger: quietLogger()})
			require.NoError(t, err)

			_, err = c.StreamChat(context.Background(), provider.Request{Model: "gemini-2.5-flash", Messages: msgs("user", "hi")})
			require.Error(t, err)
			assert.Equal(t, 400, provider.StatusCode(err))
			assert.Equal(t, "Gemini API Error: 400 Bad Request - "+tt.want, err.Error())
		})
	}
}

func TestGemini_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"promptFeedback\":{\"blockReason\":\"SAFETY\"}}\n\n")
	}))
	defer server.Close()

	c, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL, Logger: quietLogger()})
	require.NoError(t, err)

	stream, err := c.StreamChat(context.Background(), provider.Request{Model: "gemini-2.5-flash", Messages: msgs("user", "hi")})
	require.NoError(t, err)

	_, err = provider.Collect(stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}
