// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestStream_DeliversInOrder(t *testing.T) {
	s := FromStrings(context.Background(), "a", "b", "c")

	var got []string
	for {
		frag, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, frag)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// Stays at EOF
	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_ErrorTerminates(t *testing.T) {
	boom := errors.New("boom")
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit("partial"); err != nil {
			return err
		}
		return boom
	})

	text, err := Collect(s)
	assert.Equal(t, "partial", text)
	assert.ErrorIs(t, err, boom)
}

func TestStream_CloseCancelsProducer(t *testing.T) {
	exited := make(chan error, 1)
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for {
			if err := emit("x"); err != nil {
				exited <- err
				return err
			}
		}
	})

	frag, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", frag)

	require.NoError(t, s.Close())
	select {
	case err := <-exited:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not exit after Close")
	}

	// Close is idempotent
	assert.NoError(t, s.Close())
}

func TestStream_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(ctx, func(ctx context.Context, emit EmitFunc) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()

	_, err := s.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEach_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	count := 0
	err := Each(FromStrings(context.Background(), "1", "2", "3"), func(string) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Message(t *testing.T) {
	err := &ClientError{
		Type:    ErrTypeConnectivity,
		Message: "Connection to Ollama at http://x failed",
		Hint:    "Set OLLAMA_ORIGINS.",
		Cause:   errors.New("connection refused"),
	}
	assert.Equal(t, "Connection to Ollama at http://x failed: connection refused. Set OLLAMA_ORIGINS.", err.Error())
	assert.True(t, IsConnectivity(err))
	assert.False(t, IsHTTP(err))
}

func TestClientError_Sentinels(t *testing.T) {
	err := NewMissingKeyError(model.ProviderOpenAI, "OpenAI API key is missing.")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, "OpenAI API key is missing.", err.Error())
	assert.NotErrorIs(t, NewConfigurationError(model.ProviderOllama, "bad url"), ErrMissingAPIKey)
	assert.NotErrorIs(t, err, ErrNoMessages)
	assert.True(t, IsConfiguration(err))
}

func TestHTTPError_StatusCode(t *testing.T) {
	err := NewHTTPError(model.ProviderOpenAI, 429, "OpenAI API Error: 429 Too Many Requests - slow down")
	assert.True(t, IsHTTP(err))
	assert.Equal(t, 429, StatusCode(err))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestTransportError(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}

	t.Run("connectivity", func(t *testing.T) {
		err := TransportError(context.Background(), model.ProviderOllama, netErr, "failed", "hint")
		assert.True(t, IsConnectivity(err))
	})

	t.Run("caller cancel passes through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := TransportError(ctx, model.ProviderOllama, netErr, "failed", "hint")
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsConnectivity(err))
	})

	t.Run("deadline is timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()
		err := TransportError(ctx, model.ProviderGemini, context.DeadlineExceeded, "failed", "")
		assert.True(t, IsTimeout(err))
	})
}

func TestKeyFingerprint(t *testing.T) {
	fp := KeyFingerprint("sk-secret")
	assert.Len(t, fp, 8)
	assert.NotContains(t, fp, "secret")
	assert.Equal(t, fp, KeyFingerprint("sk-secret"))
	assert.Equal(t, "none", KeyFingerprint(""))
}
