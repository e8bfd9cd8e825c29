// app.go - Wiring shared by every command that talks to a provider.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritvikindupuri/GlyphBreaker/internal/cache"
	"github.com/ritvikindupuri/GlyphBreaker/internal/cloud"
	"github.com/ritvikindupuri/GlyphBreaker/internal/config"
	"github.com/ritvikindupuri/GlyphBreaker/internal/llm"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/ollama"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

// App holds the configured services for one CLI invocation.
type App struct {
	Args      Args
	Config    *config.Config
	Logger    *slog.Logger
	Cache     *cache.Cache
	Ollama    *ollama.Client
	Service   *llm.Service
	Templates *templates.Registry
	Sessions  *storage.SessionStore

	// CacheBackend is the backend actually opened, which differs from the
	// configured one after a fallback to memory.
	CacheBackend string
	CachePath    string
}

// NewApp loads configuration, applies command-line overrides and builds
// the provider adapters, cache, template registry and session store.
func NewApp(args Args) (*App, error) {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := applyModelFlags(cfg, args); err != nil {
		return nil, err
	}
	if args.NoCache {
		cfg.Cache.Enabled = false
	}

	app := &App{Args: args, Config: cfg, Logger: newLogger(args)}

	if err := app.openCache(); err != nil {
		return nil, err
	}

	transport := cfg.TransportConfig()

	unavailable := make(map[model.Provider]error)
	var adapters []provider.Adapter
	gemini, err := cloud.NewGeminiClient(cloud.GeminiConfig{
		APIKey:    cfg.Gemini.APIKey,
		BaseURL:   cfg.Gemini.BaseURL,
		Transport: transport,
		Logger:    app.Logger,
	})
	if err != nil {
		unavailable[model.ProviderGemini] = err
	} else {
		adapters = append(adapters, gemini)
	}

	adapters = append(adapters, cloud.NewOpenAIClient(cloud.OpenAIConfig{
		BaseURL:   cfg.OpenAI.BaseURL,
		Transport: transport,
		Logger:    app.Logger,
	}))

	app.Ollama = ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:   cfg.Ollama.URL,
		Transport: transport,
		Logger:    app.Logger,
	})
	adapters = append(adapters, app.Ollama)

	app.Service = llm.NewService(llm.Options{
		Adapters:        adapters,
		Unavailable:     unavailable,
		Cache:           app.Cache,
		ReplayChunkSize: cfg.Cache.ReplayChunkSize,
		ReplayDelay:     cfg.ReplayDelay(),
		StreamTimeout:   cfg.StreamTimeout(),
		AnalysisModel:   cfg.Gemini.AnalysisModel,
		Probe:           app.Ollama,
		Logger:          app.Logger,
	})

	tdir, err := cfg.TemplatesDir()
	if err != nil {
		return nil, err
	}
	app.Templates = templates.NewRegistry(tdir)
	if err := app.Templates.Reload(); err != nil {
		app.Logger.Warn("custom templates not loaded", "dir", tdir, "error", err)
	}

	sdir, err := cfg.SessionsDir()
	if err != nil {
		return nil, err
	}
	app.Sessions, err = storage.NewSessionStoreWithDir(sdir)
	if err != nil {
		return nil, err
	}
	app.Sessions.MaxHistory = cfg.Sessions.MaxHistory

	app.Logger.Debug("app ready",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"cache", app.CacheBackend,
		"openai_key", provider.KeyFingerprint(cfg.OpenAI.APIKey))
	return app, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return nil, err
		}
	}
	return config.LoadFrom(path)
}

// applyModelFlags applies --provider and --model. Choosing a provider
// without a model selects that provider's default model. An unlisted
// Ollama model, from flags or the config file, is registered since any
// locally pulled model is usable.
func applyModelFlags(cfg *config.Config, args Args) error {
	if args.Provider != "" {
		p, err := model.ParseProvider(args.Provider)
		if err != nil {
			return NewValidationError("provider", args.Provider, err.Error())
		}
		cfg.LLM.Provider = string(p)
		cfg.LLM.Model = model.DefaultModel(p)
	}
	if args.Model != "" {
		cfg.LLM.Model = args.Model
	}

	p := model.Provider(cfg.LLM.Provider)
	if p == model.ProviderOllama && !model.IsValidModel(p, cfg.LLM.Model) {
		if err := model.RegisterModel(model.ModelInfo{ID: cfg.LLM.Model, Name: cfg.LLM.Model, Provider: p}); err != nil {
			return NewValidationError("model", cfg.LLM.Model, err.Error())
		}
	}
	if err := cfg.LlmConfig().Validate(); err != nil {
		return NewValidationError("model", cfg.LLM.Model, err.Error())
	}
	return nil
}

// newLogger writes text logs to stderr. Warnings show by default, -v
// enables debug and -q hides everything below errors.
func newLogger(args Args) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case args.Verbose:
		level = slog.LevelDebug
	case args.Quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openCache opens the configured backend, falling back to memory when the
// backend cannot be opened so a broken cache never blocks a request.
func (a *App) openCache() error {
	backend := a.Config.Cache.Backend
	path, err := a.Config.CachePath()
	if err != nil {
		return err
	}

	store, err := cache.Open(backend, path)
	if err != nil {
		a.Logger.Warn("cache unavailable, using memory", "backend", backend, "path", path, "error", err)
		backend, path = cache.BackendMemory, ""
		if store, err = cache.Open(backend, ""); err != nil {
			return fmt.Errorf("open memory cache: %w", err)
		}
	}

	opts := a.Config.CacheOptions()
	opts.Logger = a.Logger
	a.Cache = cache.New(store, opts)
	a.CacheBackend = backend
	a.CachePath = path
	return nil
}

// Close releases the cache.
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	return a.Cache.Close()
}

// LlmConfig returns the effective model settings.
func (a *App) LlmConfig() model.LlmConfig {
	return a.Config.LlmConfig()
}

// Complete streams the target's reply to history under systemPrompt.
func (a *App) Complete(ctx context.Context, history []*model.Message, systemPrompt string) (*provider.Stream, error) {
	return a.Service.StreamCompletion(ctx, llm.CompletionRequest{
		Messages:     history,
		Credentials:  a.Config.ApiKeys(),
		SystemPrompt: systemPrompt,
		Config:       a.LlmConfig(),
		CacheEnabled: a.Config.Cache.Enabled,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
