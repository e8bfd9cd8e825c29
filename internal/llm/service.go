// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/cache"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/ollama"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultReplayChunkSize is the rune count of one replayed fragment.
	DefaultReplayChunkSize = 30

	// DefaultReplayDelay is the pause between replayed fragments.
	DefaultReplayDelay = 2 * time.Millisecond

	// DefaultAnalysisModel is the Gemini model used for analysis and
	// adversarial suggestions.
	DefaultAnalysisModel = "gemini-2.5-flash"
)

// StatusChecker is the Ollama reachability probe.
type StatusChecker interface {
	CheckStatus(ctx context.Context, baseURL string) ollama.Status
}

// Options wires a Service.
type Options struct {
	// Adapters are keyed by their Provider(). A nil entry is skipped.
	Adapters []provider.Adapter

	// Unavailable records why a provider has no adapter, typically the
	// Gemini constructor's configuration error. It is returned verbatim to
	// callers that select that provider.
	Unavailable map[model.Provider]error

	// Cache may be nil, which disables caching regardless of the per-call
	// flag.
	Cache *cache.Cache

	ReplayChunkSize int
	ReplayDelay     time.Duration

	// StreamTimeout bounds one completion end to end. Zero means none.
	StreamTimeout time.Duration

	AnalysisModel string

	Probe  StatusChecker
	Logger *slog.Logger
}

// Service dispatches completions. It is safe for concurrent use.
type Service struct {
	adapters      map[model.Provider]provider.Adapter
	unavailable   map[model.Provider]error
	cache         *cache.Cache
	chunkSize     int
	replayDelay   time.Duration
	streamTimeout time.Duration
	analysisModel string
	probe         StatusChecker
	logger        *slog.Logger
}

// NewService creates a Service from opts, filling defaults.
func NewService(opts Options) *Service {
	s := &Service{
		adapters:      make(map[model.Provider]provider.Adapter, len(opts.Adapters)),
		unavailable:   make(map[model.Provider]error, len(opts.Unavailable)),
		cache:         opts.Cache,
		chunkSize:     opts.ReplayChunkSize,
		replayDelay:   opts.ReplayDelay,
		streamTimeout: opts.StreamTimeout,
		analysisModel: opts.AnalysisModel,
		probe:         opts.Probe,
		logger:        opts.Logger,
	}
	for _, a := range opts.Adapters {
		if a != nil {
			s.adapters[a.Provider()] = a
		}
	}
	for p, err := range opts.Unavailable {
		s.unavailable[p] = err
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultReplayChunkSize
	}
	if s.replayDelay < 0 {
		s.replayDelay = 0
	}
	if s.analysisModel == "" {
		s.analysisModel = DefaultAnalysisModel
	}
	if s.probe == nil {
		s.probe = ollama.NewClient()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// adapter returns the adapter for p or the reason it is missing.
func (s *Service) adapter(p model.Provider) (provider.Adapter, error) {
	if a, ok := s.adapters[p]; ok {
		return a, nil
	}
	if err, ok := s.unavailable[p]; ok && err != nil {
		return nil, err
	}
	return nil, provider.NewConfigurationError(p, fmt.Sprintf("Unsupported provider: %s", p))
}

// =============================================================================
// STREAM COMPLETION
// =============================================================================

// CompletionRequest is the input of StreamCompletion.
type CompletionRequest struct {
	// Provider overrides Config.Provider when set.
	Provider model.Provider

	Messages     []*model.Message
	Credentials  model.ApiKeys
	SystemPrompt string
	Config       model.LlmConfig
	CacheEnabled bool
}

// StreamCompletion returns the completion for req as a fragment stream.
//
// Invalid configuration and errors detected before the provider starts
// answering are returned directly. Mid-stream failures terminate the
// stream, and nothing is cached unless the stream ends cleanly.
func (s *Service) StreamCompletion(ctx context.Context, req CompletionRequest) (*provider.Stream, error) {
	cfg := req.Config
	if req.Provider != "" {
		cfg.Provider = req.Provider
	}
	if err := cfg.Validate(); err != nil {
		return nil, &provider.ClientError{
			Type:     provider.ErrTypeConfiguration,
			Provider: cfg.Provider,
			Code:     provider.ErrUnknownModel.Code,
			Message:  "invalid model configuration",
			Cause:    err,
		}
	}

	caching := req.CacheEnabled && s.cache != nil
	var key string
	if caching {
		key = cache.DeriveKey(cfg, req.SystemPrompt, req.Messages)
		if text, ok := s.cache.Lookup(key); ok {
			s.logger.Debug("CACHE_HIT | replaying", "provider", cfg.Provider, "model", cfg.Model, "bytes", len(text))
			return s.replay(ctx, text), nil
		}
	}

	a, err := s.adapter(cfg.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.streamTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.streamTimeout)
	}

	preq := provider.NewRequest(cfg, req.SystemPrompt, req.Messages, credentialFor(cfg.Provider, req.Credentials))
	s.logger.Debug("STREAM_OPEN", "provider", cfg.Provider, "model", cfg.Model,
		"messages", len(req.Messages), "cache", caching)

	upstream, err := a.StreamChat(callCtx, preq)
	if err != nil {
		cancel()
		return nil, err
	}

	if !caching && s.streamTimeout == 0 {
		return upstream, nil
	}

	return provider.NewStream(callCtx, func(ctx context.Context, emit provider.EmitFunc) error {
		defer cancel()
		defer upstream.Close()

		var full strings.Builder
		for {
			frag, err := upstream.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			full.WriteString(frag)
			if err := emit(frag); err != nil {
				return err
			}
		}

		if caching {
			s.cache.Store(key, full.String())
		}
		return nil
	}), nil
}

// credentialFor picks the per-call secret an adapter expects.
func credentialFor(p model.Provider, keys model.ApiKeys) string {
	switch p {
	case model.ProviderOpenAI:
		return keys.OpenAI
	case model.ProviderOllama:
		return keys.OllamaURL()
	default:
		return ""
	}
}

// =============================================================================
// REACHABILITY
// =============================================================================

// CheckProviderReachability probes an Ollama base URL.
func (s *Service) CheckProviderReachability(ctx context.Context, baseURL string) ollama.Status {
	return s.probe.CheckStatus(ctx, baseURL)
}

// Available reports whether a provider has an adapter, with the reason when
// it does not.
func (s *Service) Available(p model.Provider) (bool, error) {
	_, err := s.adapter(p)
	return err == nil, err
}
