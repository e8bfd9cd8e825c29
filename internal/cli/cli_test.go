// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritvikindupuri/GlyphBreaker/internal/config"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "flag with value",
			args:    []string{"--template", "dan", "hello", "there"},
			wantSub: "hello",
			validate: func(t *testing.T, p *ArgParser) {
				if got := p.Flag("template", "t"); got != "dan" {
					t.Errorf("Flag(template) = %q, want %q", got, "dan")
				}
				if got := p.JoinFrom(0); got != "hello there" {
					t.Errorf("JoinFrom(0) = %q, want %q", got, "hello there")
				}
			},
		},
		{
			name:    "equals form",
			args:    []string{"--system=be nice", "hi"},
			wantSub: "hi",
			validate: func(t *testing.T, p *ArgParser) {
				if got := p.Flag("system"); got != "be nice" {
					t.Errorf("Flag(system) = %q", got)
				}
			},
		},
		{
			name:    "short alias",
			args:    []string{"-t", "roleplay"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if got := p.Flag("template", "t"); got != "roleplay" {
					t.Errorf("Flag(template, t) = %q", got)
				}
			},
		},
		{
			name:    "declared bool does not consume",
			args:    []string{"--all", "list"},
			bools:   []string{"all"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("all") {
					t.Error("BoolFlag(all) = false")
				}
			},
		},
		{
			name:    "trailing flag is bool",
			args:    []string{"list", "--force"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("force") {
					t.Error("BoolFlag(force) = false")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "--not-a-flag", "x"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 2 {
					t.Errorf("PositionalCount() = %d, want 2", p.PositionalCount())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if got := p.Subcommand(); got != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"--n", "12", "--bad", "x"})

	n, ok, err := p.FlagInt("n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok, err = p.FlagInt("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.FlagInt("bad")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.Field)
}

func TestArgParser_Empty(t *testing.T) {
	p := NewArgParser(nil)
	assert.Equal(t, "", p.Subcommand())
	assert.Equal(t, "", p.Positional(3))
	assert.Nil(t, p.PositionalFrom(1))
	assert.Equal(t, "def", p.FlagOrDefault("x", "def"))
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{argv: nil, wantCmd: CmdChat},
		{argv: []string{"ask", "hello"}, wantCmd: CmdAsk, check: func(t *testing.T, a Args) {
			assert.Equal(t, []string{"hello"}, a.Raw)
		}},
		{argv: []string{"-p", "ollama", "-m", "mistral", "chat"}, wantCmd: CmdChat, check: func(t *testing.T, a Args) {
			assert.Equal(t, "ollama", a.Provider)
			assert.Equal(t, "mistral", a.Model)
		}},
		{argv: []string{"ask", "--json", "--no-cache", "x"}, wantCmd: CmdAsk, check: func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
			assert.True(t, a.NoCache)
			assert.Equal(t, []string{"x"}, a.Raw)
		}},
		{argv: []string{"--provider=openai", "--config=/tmp/c.toml", "status"}, wantCmd: CmdStatus, check: func(t *testing.T, a Args) {
			assert.Equal(t, "openai", a.Provider)
			assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
		}},
		{argv: []string{"analyse"}, wantCmd: CmdAnalyze},
		{argv: []string{"template", "list"}, wantCmd: CmdTemplates},
		{argv: []string{"session"}, wantCmd: CmdSessions},
		{argv: []string{"-v", "cache", "stats"}, wantCmd: CmdCache, check: func(t *testing.T, a Args) {
			assert.True(t, a.Verbose)
		}},
		{argv: []string{"--version"}, wantCmd: CmdVersion},
		{argv: []string{"-h"}, wantCmd: CmdHelp},
		{argv: []string{"chta"}, wantCmd: CmdUnknown, check: func(t *testing.T, a Args) {
			assert.Equal(t, "chta", a.Name)
		}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	tests := map[string]string{
		"analize": "analyze",
		"stauts":  "status",
		"verison": "version",
		"xyzzy":   "",
		"ask":     "",
		"a":       "",
	}
	for input, want := range tests {
		if got := SuggestCommand(input); got != want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHandleUnknown_Suggests(t *testing.T) {
	err := HandleUnknown(Args{Name: "stauts"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// EXIT CODES (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cancelled", fmt.Errorf("stream: %w", context.Canceled), ExitInterrupted},
		{"validation", NewValidationError("model", "x", "unknown"), ExitUsageError},
		{"missing arg", ErrMissingArgument("prompt", askUsage), ExitUsageError},
		{"config", config.ValidationErrors{{Field: "llm.provider", Message: "bad"}}, ExitConfigError},
		{"session missing", fmt.Errorf("%w: 9", storage.ErrSessionNotFound), ExitNotFoundError},
		{"template missing", fmt.Errorf("%w: %q", templates.ErrNotFound, "x"), ExitNotFoundError},
		{"timeout", &provider.ClientError{Type: provider.ErrTypeTimeout, Provider: model.ProviderOpenAI}, ExitTimeoutError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"no key", provider.NewConfigurationError(model.ProviderGemini, "no key"), ExitConfigError},
		{"offline", &provider.ClientError{Type: provider.ErrTypeConnectivity, Provider: model.ProviderOllama}, ExitNetworkError},
		{"unauthorized", provider.NewHTTPError(model.ProviderOpenAI, 401, "bad key"), ExitAuthError},
		{"forbidden", provider.NewHTTPError(model.ProviderGemini, 403, "denied"), ExitAuthError},
		{"server error", provider.NewHTTPError(model.ProviderOpenAI, 500, "boom"), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
		{"command with cause", &CommandError{Command: "cache", Message: "x", Err: errors.New("io")}, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

// =============================================================================
// APP WIRING (app.go)
// =============================================================================

func TestApplyModelFlags(t *testing.T) {
	t.Run("provider selects its default model", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, applyModelFlags(cfg, Args{Provider: "OpenAI"}))
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, model.DefaultModel(model.ProviderOpenAI), cfg.LLM.Model)
	})

	t.Run("model flag wins", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, applyModelFlags(cfg, Args{Provider: "openai", Model: "gpt-4"}))
		assert.Equal(t, "gpt-4", cfg.LLM.Model)
	})

	t.Run("pulled ollama model is registered", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, applyModelFlags(cfg, Args{Provider: "ollama", Model: "phi3:mini-cli-test"}))
		assert.True(t, model.IsValidModel(model.ProviderOllama, "phi3:mini-cli-test"))
	})

	t.Run("unknown cloud model rejected", func(t *testing.T) {
		cfg := config.Default()
		err := applyModelFlags(cfg, Args{Provider: "openai", Model: "gpt-99"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "model", verr.Field)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		cfg := config.Default()
		err := applyModelFlags(cfg, Args{Provider: "anthropic"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "provider", verr.Field)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func TestStreamTo(t *testing.T) {
	var live bytes.Buffer
	text, err := streamTo(provider.FromStrings(context.Background(), "Hel", "lo"), &live)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "Hello", live.String())

	text, err = streamTo(provider.FromStrings(context.Background(), "quiet"), nil)
	require.NoError(t, err)
	assert.Equal(t, "quiet", text)
}

func TestStreamTo_KeepsPartialOnError(t *testing.T) {
	boom := errors.New("reset by peer")
	s := provider.NewStream(context.Background(), func(ctx context.Context, emit provider.EmitFunc) error {
		if err := emit("partial"); err != nil {
			return err
		}
		return boom
	})
	text, err := streamTo(s, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", text)
}

func TestResolveSessionRef(t *testing.T) {
	a := model.NewSession("s", model.DefaultLlmConfig())
	b := model.NewSession("s", model.DefaultLlmConfig())
	history := []*model.Session{a, b}

	id, err := resolveSessionRef("2", history)
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)

	id, err = resolveSessionRef(a.ID, history)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	_, err = resolveSessionRef("3", history)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	_, err = resolveSessionRef("", history)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDisplayValue_MasksSecrets(t *testing.T) {
	assert.Equal(t, "ollama", displayValue("llm.provider", "ollama"))
	assert.Equal(t, "(not set)", displayValue("openai.api_key", ""))

	masked := displayValue("gemini.api_key", "AIza-super-secret")
	assert.NotContains(t, masked, "super-secret")
	assert.Equal(t, provider.KeyFingerprint("AIza-super-secret"), masked)
}

func TestFormatDurationShort(t *testing.T) {
	assert.Equal(t, "250ms", formatDurationShort(250_000_000))
	assert.Equal(t, "1.5s", formatDurationShort(1_500_000_000))
	assert.Equal(t, "2m5s", formatDurationShort(125_000_000_000))
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

func TestJSONResponse_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONResponse("version", VersionData{Version: "1.2.3"}).WriteTo(&buf))

	var decoded struct {
		Success bool            `json:"success"`
		Command string          `json:"command"`
		Error   *string         `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, "version", decoded.Command)
	assert.Nil(t, decoded.Error)
	assert.Contains(t, string(decoded.Data), `"version": "1.2.3"`)

	failed := NewJSONErrorResponse("ask", errors.New("nope"))
	assert.False(t, failed.Success)
	assert.Contains(t, failed.String(), `"error": "nope"`)
}
