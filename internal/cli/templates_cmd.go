// templates_cmd.go - Attack template browser.
//
// Command: templates [subcommand]
//
// Subcommands:
//   list (default)  Built-in and custom templates
//   show REF        Full prompt, goal and suggested system prompts
//   path            Directory scanned for custom templates
//
// REF is a template ID, its full name, or the prefix before ":" in the
// name ("templates show DAN").
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"
	"strings"

	"github.com/ritvikindupuri/GlyphBreaker/internal/content"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/util"
)

// HandleTemplates handles the "templates" command.
func HandleTemplates(args Args) error {
	p := NewArgParser(args.Raw)

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "list", "ls":
		list := app.Templates.List()
		if args.JSON {
			data := make([]TemplateData, 0, len(list))
			for _, t := range list {
				data = append(data, templateData(t))
			}
			return NewJSONResponse("templates list", data).Print()
		}
		fmt.Println(renderTable(templateTable(list)))
		return nil

	case "show", "get":
		ref := p.JoinFrom(1)
		if ref == "" {
			return ErrMissingArgument("template", "glyphbreaker templates show <id|name>")
		}
		t, err := app.Templates.Get(ref)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("templates show", t).Print()
		}
		printTemplate(t)
		return nil

	case "path", "dir":
		if args.JSON {
			return NewJSONResponse("templates path", map[string]string{"dir": app.Templates.Dir()}).Print()
		}
		fmt.Println(app.Templates.Dir())
		return nil

	default:
		return &CommandError{Command: "templates", Message: fmt.Sprintf("unknown templates subcommand %q (use list, show or path)", sub)}
	}
}

func templateData(t model.AttackTemplate) TemplateData {
	return TemplateData{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Adversarial: t.IsAdversarial(),
		Custom:      t.Custom,
	}
}

// templateTable lays out templates for the list view.
func templateTable(list []model.AttackTemplate) *content.Table {
	t := &content.Table{Headers: []string{"ID", "Name", "Kind", "Description"}}
	for _, tmpl := range list {
		kind := "prompt"
		if tmpl.IsAdversarial() {
			kind = "adversarial"
		}
		if tmpl.Custom {
			kind += "*"
		}
		t.Rows = append(t.Rows, []string{tmpl.ID, tmpl.Name, kind, util.TruncateRunes(tmpl.Description, 50)})
	}
	return t
}

func printTemplate(t model.AttackTemplate) {
	fmt.Println(TitleStyle.Render(t.Name))
	fmt.Println(DimStyle.Render(t.ID))
	if t.Description != "" {
		fmt.Println(t.Description)
	}
	fmt.Println()
	fmt.Println(SectionStyle.Render("User prompt"))
	fmt.Println(HighlightKeywords(WrapText(t.UserPrompt, 0)))
	if t.Goal != "" {
		fmt.Println()
		fmt.Println(SectionStyle.Render("Adversarial goal"))
		fmt.Println(WrapText(t.Goal, 0))
	}
	for _, sp := range t.SuggestedSystemPrompts {
		fmt.Println()
		fmt.Println(SectionStyle.Render("System prompt: " + sp.Name))
		fmt.Println(DimStyle.Render(WrapText(sp.Prompt, 0)))
	}
}
