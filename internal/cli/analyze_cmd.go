// analyze_cmd.go - Security analysis and adversarial suggestion commands.
//
// Both commands read the active session written by chat.
//
// Commands:
//   analyze              Threat report on the active session
//   suggest <goal>       Next attacker turn toward goal
//   suggest --template REF
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/content"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

const suggestUsage = "glyphbreaker suggest <goal> | --template REF"

// AnalysisData is the JSON form of an analysis report.
type AnalysisData struct {
	Report   string                  `json:"report"`
	Sections []content.ReportSection `json:"sections"`
}

// HandleAnalyze handles the "analyze" command.
func HandleAnalyze(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := activeSession(app)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := runAnalysis(ctx, app, sess.History())
	if err != nil {
		return err
	}

	sections := content.ParseAnalysisReport(report)
	if args.JSON {
		return NewJSONResponse("analyze", AnalysisData{Report: report, Sections: sections}).Print()
	}
	printReport(report, sections)
	return nil
}

// HandleSuggest handles the "suggest" command.
func HandleSuggest(args Args) error {
	p := NewArgParser(args.Raw)
	goal := p.JoinFrom(0)

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if ref := p.Flag("template", "t"); ref != "" && goal == "" {
		sel, err := app.Templates.Select(ref)
		if err != nil {
			return err
		}
		goal = sel.Goal
	}
	if strings.TrimSpace(goal) == "" {
		return ErrMissingArgument("goal", suggestUsage)
	}

	sess, err := activeSession(app)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	suggestion, err := runSuggestion(ctx, app, sess, goal)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("suggest", AskData{
			Provider:   string(model.ProviderGemini),
			Model:      app.Config.Gemini.AnalysisModel,
			Response:   suggestion,
			Kind:       content.KindPlain.String(),
			Keywords:   content.DetectKeywords(suggestion),
			DurationMs: time.Since(start).Milliseconds(),
		}).Print()
	}
	fmt.Println(HighlightKeywords(suggestion))
	return nil
}

// activeSession loads the active session, or an empty one when none was
// saved yet.
func activeSession(app *App) (*model.Session, error) {
	sess, err := app.Sessions.LoadActive()
	if errors.Is(err, storage.ErrSessionNotFound) {
		return model.NewSession(templates.DefaultSystemPrompt, app.LlmConfig()), nil
	}
	return sess, err
}

func runAnalysis(ctx context.Context, app *App, history []*model.Message) (string, error) {
	stream, err := app.Service.StreamAnalysis(ctx, history)
	if err != nil {
		return "", err
	}
	return streamTo(stream, nil)
}

func runSuggestion(ctx context.Context, app *App, sess *model.Session, goal string) (string, error) {
	stream, err := app.Service.StreamAdversarialSuggestion(ctx, sess.History(), goal, sess.SystemPrompt)
	if err != nil {
		return "", err
	}
	text, err := streamTo(stream, nil)
	return strings.TrimSpace(text), err
}

// printReport renders sections, or the raw report when it had none.
func printReport(report string, sections []content.ReportSection) {
	fmt.Println(TitleStyle.Render("Security Analysis"))
	fmt.Println(RenderSeparator(40))
	if len(sections) == 0 {
		fmt.Println(renderMarkdown(report))
		return
	}
	fmt.Println(RenderReport(sections))
}
