// status.go - Provider reachability overview.
//
// Every provider is probed concurrently. Ollama is checked with the same
// /api/tags probe the console uses and lists its pulled models. Cloud
// providers report whether a key is configured and whether their API
// host answers HTTP at all; no completion is attempted.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritvikindupuri/GlyphBreaker/internal/cloud"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

const statusProbeTimeout = 5 * time.Second

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	data := StatusData{
		Provider:  app.Config.LLM.Provider,
		Model:     app.Config.LLM.Model,
		Providers: collectProviderStatus(ctx, app),
		Cache:     cacheStatsData(app),
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}
	printStatus(data)
	return nil
}

// collectProviderStatus probes all providers in parallel. Results keep
// catalog order regardless of completion order.
func collectProviderStatus(ctx context.Context, app *App) []ProviderStatus {
	providers := model.Providers
	results := make([]ProviderStatus, len(providers))

	ctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			results[i] = probeProvider(ctx, app, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeProvider(ctx context.Context, app *App, p model.Provider) ProviderStatus {
	st := ProviderStatus{Provider: string(p)}
	cfg := app.Config

	switch p {
	case model.ProviderOllama:
		st.Configured = true
		status := app.Service.CheckProviderReachability(ctx, cfg.Ollama.URL)
		st.Reachable, st.Message = status.OK, status.Message
		if status.OK {
			if models, err := app.Ollama.ListModels(ctx, cfg.Ollama.URL); err == nil {
				for _, m := range models {
					st.Models = append(st.Models, m.Name)
				}
			}
		}
		return st

	case model.ProviderGemini:
		ok, err := app.Service.Available(p)
		st.Configured = ok
		if err != nil {
			st.Message = err.Error()
			return st
		}
		st.Reachable, st.Message = probeHost(ctx, app, orDefault(cfg.Gemini.BaseURL, cloud.DefaultGeminiURL))

	case model.ProviderOpenAI:
		st.Configured = cfg.OpenAI.APIKey != ""
		if !st.Configured {
			st.Message = "OpenAI API key not set"
			return st
		}
		st.Reachable, st.Message = probeHost(ctx, app, orDefault(cfg.OpenAI.BaseURL, cloud.DefaultOpenAIURL))
	}

	for _, m := range model.ModelsFor(p) {
		st.Models = append(st.Models, m.ID)
	}
	return st
}

// probeHost reports whether url answers HTTP. Any status counts, since an
// unauthenticated request to an API root is expected to be rejected.
func probeHost(ctx context.Context, app *App, url string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, "invalid URL: " + err.Error()
	}
	client := provider.NewHTTPClient(app.Config.TransportConfig())
	resp, err := client.Do(req)
	if err != nil {
		app.Logger.Debug("host probe failed", "url", url, "error", err)
		return false, "unreachable: " + err.Error()
	}
	resp.Body.Close()
	return true, fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func printStatus(data StatusData) {
	fmt.Println(TitleStyle.Render("GlyphBreaker Status"))
	fmt.Println(RenderSeparator(50))
	fmt.Printf("%s%s / %s\n", RenderLabel("Target"), data.Provider, data.Model)
	fmt.Println()

	fmt.Println(SectionStyle.Render("Providers"))
	for _, st := range data.Providers {
		name := model.Provider(st.Provider).DisplayName()
		state := RenderStatus(st.Configured && st.Reachable)
		fmt.Printf("  %s %s %s\n", state, LabelStyle.Render(name), DimStyle.Render(st.Message))
		if len(st.Models) > 0 {
			fmt.Printf("  %s %s\n", LabelStyle.Render(""), DimStyle.Render(fmt.Sprint(st.Models)))
		}
	}
	fmt.Println()

	printCacheStats(data.Cache)
}
