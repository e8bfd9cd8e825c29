// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
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

func testClient() *Client {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClientWithConfig(cfg)
}

func history(pairs ...string) []*model.Message {
	msgs := make([]*model.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		msgs = append(msgs, model.NewMessage(model.Role(pairs[i]), pairs[i+1]))
	}
	return msgs
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReader_Process(t *testing.T) {
	body := strings.Join([]string{
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		``,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`not json at all`,
		`{"message":{"role":"assistant","content":""},"done":false}`,
		`{"message":{"role":"assistant","content":"!"},"done":true,"eval_count":3}`,
		`{"message":{"role":"assistant","content":"after done"},"done":false}`,
	}, "\n")

	var got []string
	err := NewStreamReader(strings.NewReader(body), slog.New(slog.NewTextHandler(io.Discard, nil))).
		Process(context.Background(), func(f string) error {
			got = append(got, f)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
}

func TestStreamReader_FinalLineWithoutNewline(t *testing.T) {
	body := `{"message":{"content":"only"},"done":true}`
	var got []string
	err := NewStreamReader(strings.NewReader(body), nil).Process(context.Background(), func(f string) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got)
}

func TestStreamReader_ErrorObject(t *testing.T) {
	body := `{"message":{"content":"a"},"done":false}` + "\n" + `{"error":"model crashed"}` + "\n"
	err := NewStreamReader(strings.NewReader(body), nil).Process(context.Background(), func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
}

// =============================================================================
// STREAM CHAT TESTS
// =============================================================================

func TestStreamChat_RequestShape(t *testing.T) {
	var captured ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"message":{"content":"ok"},"done":false}`+"\n")
		io.WriteString(w, `{"message":{"content":""},"done":true}`+"\n")
	}))
	defer server.Close()

	stream, err := testClient().StreamChat(context.Background(), provider.Request{
		Model:        "mistral",
		SystemPrompt: "be safe",
		Messages:     history("user", "a", "user", "b", "assistant", "c"),
		Temperature:  0,
		TopP:         0.9,
		TopK:         model.IntPtr(40),
		Credential:   server.URL + "/",
	})
	require.NoError(t, err)

	text, err := provider.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	assert.Equal(t, "mistral", captured.Model)
	assert.True(t, captured.Stream)
	require.Len(t, captured.Messages, 4, "system plus uncoalesced history")
	assert.Equal(t, Message{Role: "system", Content: "be safe"}, captured.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "a"}, captured.Messages[1])
	assert.Equal(t, Message{Role: "user", Content: "b"}, captured.Messages[2])
	require.NotNil(t, captured.Options)
	assert.Equal(t, 0.9, captured.Options.TopP)
	assert.Equal(t, 40, captured.Options.TopK)
}

func TestStreamChat_ZeroTemperatureIsSent(t *testing.T) {
	data, err := json.Marshal(Options{Temperature: 0, TopP: 0.5})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"temperature":0`)
	assert.NotContains(t, string(data), "top_k")
}

func TestStreamChat_NoMessages(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	stream, err := testClient().StreamChat(context.Background(), provider.Request{Credential: server.URL})
	require.NoError(t, err)
	text, err := provider.Collect(stream)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.False(t, called)
}

func TestStreamChat_ConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := testClient().StreamChat(context.Background(), provider.Request{
		Messages:   history("user", "hi"),
		Credential: url,
	})
	require.Error(t, err)
	assert.True(t, provider.IsConnectivity(err), "want connectivity error, got %v", err)
	assert.Contains(t, err.Error(), "OLLAMA_ORIGINS")
	assert.Contains(t, err.Error(), "CORS")
	assert.Contains(t, err.Error(), url)
}

func TestStreamChat_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "llama runner process has terminated")
	}))
	defer server.Close()

	_, err := testClient().StreamChat(context.Background(), provider.Request{
		Messages:   history("user", "hi"),
		Credential: server.URL,
	})
	require.Error(t, err)
	assert.True(t, provider.IsHTTP(err))
	assert.False(t, provider.IsConnectivity(err))
	assert.Equal(t, 500, provider.StatusCode(err))
	assert.Equal(t, "Ollama API Error: 500 Internal Server Error - llama runner process has terminated", err.Error())
}

func TestStreamChat_StructuredHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'llama9' not found"}`)
	}))
	defer server.Close()

	_, err := testClient().StreamChat(context.Background(), provider.Request{
		Model:      "llama9",
		Messages:   history("user", "hi"),
		Credential: server.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model 'llama9' not found")
	assert.Equal(t, 404, provider.StatusCode(err))
}

func TestStreamChat_InvalidURL(t *testing.T) {
	_, err := testClient().StreamChat(context.Background(), provider.Request{
		Messages:   history("user", "hi"),
		Credential: "localhost:11434",
	})
	require.Error(t, err)
	assert.True(t, provider.IsConfiguration(err))
}

// =============================================================================
// STATUS PROBE TESTS
// =============================================================================

func TestCheckStatus(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[]}`)
	}))
	defer ok.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	client := testClient()
	tests := []struct {
		name   string
		url    string
		wantOK bool
		want   string
	}{
		{"invalid url", "ftp://example.com", false, StatusInvalidURL},
		{"missing scheme", "localhost:11434", false, StatusInvalidURL},
		{"reachable", ok.URL, true, StatusOK},
		{"http error", bad.URL, false, "Server responded with status 403. Check the URL."},
		{"network failure", closedURL, false, StatusCORS},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := client.CheckStatus(context.Background(), tc.url)
			assert.Equal(t, tc.wantOK, status.OK)
			assert.Equal(t, tc.want, status.Message)
		})
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"models":[{"name":"llama3:latest","size":4661224676},{"name":"phi3"}]}`)
	}))
	defer server.Close()

	models, err := testClient().ListModels(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:latest", models[0].Name)
	assert.Equal(t, "4.3 GB", models[0].FormatSize())
}
