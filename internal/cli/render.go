// render.go - Terminal rendering of target responses and reports.
//
// Responses are classified by the content package and drawn as markdown,
// grouped bullets, aligned tables or horizontal bar charts. The layout
// functions return plain lines and styling is applied on top, so the
// shapes can be tested without a terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/ritvikindupuri/GlyphBreaker/internal/content"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// =============================================================================
// MARKDOWN
// =============================================================================

var (
	mdRenderer     *glamour.TermRenderer
	mdRendererOnce sync.Once
)

// renderMarkdown renders text through glamour, returning the input
// unchanged when colors are off or the renderer fails.
func renderMarkdown(text string) string {
	if !ColorsEnabled() {
		return text
	}
	mdRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
		)
		if err == nil {
			mdRenderer = r
		}
	})
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// CLASSIFIED CONTENT
// =============================================================================

// RenderContent classifies text and renders it in its detected shape.
func RenderContent(text string) string {
	return RenderParsed(content.Classify(text))
}

// RenderParsed renders an already classified message.
func RenderParsed(p content.Parsed) string {
	switch p.Kind {
	case content.KindChart:
		return renderChart(p.Chart)
	case content.KindTable:
		return renderTable(p.Table)
	case content.KindStructured:
		return renderSections(p.Sections)
	default:
		return renderMarkdown(p.Text)
	}
}

func renderSections(sections []content.Section) string {
	lines := sectionLines(sections)
	for i, line := range lines {
		if line != "" && !strings.HasPrefix(line, bulletPrefix) {
			lines[i] = SectionStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

const bulletPrefix = "  • "

// sectionLines is the unstyled layout of renderSections.
func sectionLines(sections []content.Section) []string {
	var lines []string
	for i, sec := range sections {
		if i > 0 {
			lines = append(lines, "")
		}
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, bullet := range sec.Bullets {
			lines = append(lines, bulletPrefix+bullet)
		}
	}
	return lines
}

func renderTable(t *content.Table) string {
	lines := tableLines(t)
	if len(lines) == 0 {
		return ""
	}
	lines[0] = TableHeaderStyle.Render(lines[0])
	lines[1] = DimStyle.Render(lines[1])
	return strings.Join(lines, "\n")
}

// tableLines lays out t as a header line, a rule and one line per row.
// Columns are padded to their widest cell in display cells. Rows shorter
// than the header get empty cells; extra cells are dropped.
func tableLines(t *content.Table) []string {
	if t == nil || len(t.Headers) == 0 {
		return nil
	}
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	join := func(cells []string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = runewidth.FillRight(cell, w)
		}
		return strings.TrimRight(strings.Join(parts, " │ "), " ")
	}

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}

	lines := []string{join(t.Headers), strings.Join(rule, "─┼─")}
	for _, row := range t.Rows {
		lines = append(lines, join(row))
	}
	return lines
}

const chartBarWidth = 40

func renderChart(c *content.Chart) string {
	lines := chartLines(c, chartBarWidth)
	if len(lines) == 0 {
		return ""
	}
	if c.Title != "" {
		lines[0] = TitleStyle.Render(lines[0])
	}
	return strings.Join(lines, "\n")
}

// chartLines lays out c as a title line followed by one bar per point.
// Bars scale to the largest value; negative values draw no bar.
func chartLines(c *content.Chart, barWidth int) []string {
	if c == nil {
		return nil
	}
	var lines []string
	if c.Title != "" {
		lines = append(lines, c.Title)
	}

	labelWidth := 0
	peak := 0.0
	for _, p := range c.Values {
		labelWidth = max(labelWidth, runewidth.StringWidth(p.Label))
		peak = max(peak, p.Value)
	}

	for _, p := range c.Values {
		n := 0
		if peak > 0 && p.Value > 0 {
			n = int(p.Value / peak * float64(barWidth))
			if n == 0 {
				n = 1
			}
		}
		lines = append(lines, runewidth.FillRight(p.Label, labelWidth)+" "+
			strings.Repeat("█", n)+" "+strconv.FormatFloat(p.Value, 'f', -1, 64))
	}
	return lines
}

// =============================================================================
// ANALYSIS REPORT
// =============================================================================

// RenderReport renders a parsed analysis report. Labeled items are drawn
// as "Key: Value" with the key emphasized.
func RenderReport(sections []content.ReportSection) string {
	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(SectionStyle.Render(strings.ToUpper(sec.Title)))
		b.WriteString("\n")
		for _, item := range sec.Items {
			b.WriteString(bulletPrefix)
			if item.Labeled() {
				b.WriteString(AttackerStyle.Render(item.Key + ":"))
				b.WriteString(" ")
				b.WriteString(item.Value)
			} else {
				b.WriteString(item.Text)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// KEYWORDS AND MESSAGES
// =============================================================================

// HighlightKeywords styles every prompt-injection keyword in text.
func HighlightKeywords(text string) string {
	var b strings.Builder
	for _, span := range content.Highlight(text) {
		if span.Keyword {
			b.WriteString(KeywordStyle.Render(span.Text))
		} else {
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// RoleLabel renders the display name of a role in its color.
func RoleLabel(r model.Role) string {
	if r == model.RoleUser {
		return AttackerStyle.Render(r.DisplayName())
	}
	return TargetStyle.Render(r.DisplayName())
}

// RenderMessage renders one transcript entry with its role label.
// Attacker text gets keyword highlighting; target text is classified.
func RenderMessage(m *model.Message) string {
	body := m.GetDisplayContent()
	switch {
	case m.Role == model.RoleUser:
		body = HighlightKeywords(body)
	case m.Failed:
		body = ErrorStyle.Render(body)
	default:
		body = RenderContent(body)
	}
	return RoleLabel(m.Role) + "\n" + body
}
