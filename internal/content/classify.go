// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// PARSED CONTENT
// =============================================================================

// Kind tags the variant held by Parsed.
type Kind int

const (
	KindPlain Kind = iota
	KindStructured
	KindTable
	KindChart
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured_text"
	case KindTable:
		return "table"
	case KindChart:
		return "chart"
	default:
		return "plain_text"
	}
}

// Point is one labeled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a titled bar chart.
type Chart struct {
	Title  string  `json:"title"`
	Values []Point `json:"values"`
}

// Table holds ordered headers and rows of cell text.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Section is a titled group of bullets. The default group has an empty title.
type Section struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Parsed is the rendering shape of a message. Exactly one of Chart, Table,
// Sections or Text is meaningful, selected by Kind.
type Parsed struct {
	Kind     Kind
	Chart    *Chart
	Table    *Table
	Sections []Section
	Text     string
}

// Markers recognized in structured text.
const (
	SectionMarker = "SECTION:"
	BulletMarker  = "BULLET:"
)

// Tags identifying JSON payloads.
const (
	chartType = "json_chart"
	tableType = "json_table"
)

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify returns the rendering shape of text. It never fails; anything
// that is not confidently a richer shape is plain text, verbatim.
func Classify(text string) Parsed {
	if p, ok := classifyJSON(text); ok {
		return p
	}
	if sections, ok := groupSections(text); ok {
		return Parsed{Kind: KindStructured, Sections: sections}
	}
	return Parsed{Kind: KindPlain, Text: text}
}

// envelope is the tagged JSON object models are asked to emit.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// classifyJSON tries each JSON shape in turn.
func classifyJSON(text string) (Parsed, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return Parsed{}, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Parsed{}, false
	}

	switch env.Type {
	case chartType:
		if chart, ok := asChart(env.Data); ok {
			return Parsed{Kind: KindChart, Chart: chart}, true
		}
	case tableType:
		if table, ok := asTable(env.Data); ok {
			return Parsed{Kind: KindTable, Table: table}, true
		}
	}
	return Parsed{}, false
}

// asChart accepts {"title": string?, "values": [{"label", "value"}]}.
// Every point needs a numeric value; numeric strings are accepted.
func asChart(raw json.RawMessage) (*Chart, bool) {
	var data struct {
		Title  any               `json:"title"`
		Values []json.RawMessage `json:"values"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil || data.Values == nil {
		return nil, false
	}

	chart := &Chart{Title: cellText(data.Title), Values: make([]Point, 0, len(data.Values))}
	for _, rv := range data.Values {
		var pt struct {
			Label any `json:"label"`
			Value any `json:"value"`
		}
		if json.Unmarshal(rv, &pt) != nil {
			return nil, false
		}
		v, ok := number(pt.Value)
		if !ok {
			return nil, false
		}
		chart.Values = append(chart.Values, Point{Label: cellText(pt.Label), Value: v})
	}
	return chart, true
}

// asTable accepts {"headers": [...], "rows": [[...], ...]}. Cells of any
// scalar type become text.
func asTable(raw json.RawMessage) (*Table, bool) {
	var data struct {
		Headers []any   `json:"headers"`
		Rows    [][]any `json:"rows"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil || data.Headers == nil || data.Rows == nil {
		return nil, false
	}

	table := &Table{
		Headers: make([]string, len(data.Headers)),
		Rows:    make([][]string, len(data.Rows)),
	}
	for i, h := range data.Headers {
		table.Headers[i] = cellText(h)
	}
	for i, row := range data.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = cellText(c)
		}
		table.Rows[i] = cells
	}
	return table, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// cellText renders a decoded JSON scalar the way it would print in a cell.
func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		data, _ := json.Marshal(c)
		return string(data)
	}
}

// =============================================================================
// STRUCTURED TEXT
// =============================================================================

// groupSections groups SECTION/BULLET lines. It reports false when no line
// carries a marker.
//
// A line before any marker opens an untitled group. An unmarked line
// continues the last bullet of the open group, or starts one if the group
// has none yet.
func groupSections(text string) ([]Section, bool) {
	lines := nonBlankLines(text)

	hasMarker := false
	for _, line := range lines {
		if strings.HasPrefix(line, SectionMarker) || strings.HasPrefix(line, BulletMarker) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return nil, false
	}

	var sections []Section
	open := func(title string) {
		sections = append(sections, Section{Title: title, Bullets: []string{}})
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, SectionMarker):
			open(strings.TrimSpace(line[len(SectionMarker):]))
			continue
		case len(sections) == 0:
			open("")
		}

		current := &sections[len(sections)-1]
		if strings.HasPrefix(line, BulletMarker) {
			current.Bullets = append(current.Bullets, strings.TrimSpace(line[len(BulletMarker):]))
			continue
		}
		if n := len(current.Bullets); n > 0 {
			current.Bullets[n-1] += "\n" + line
		} else {
			current.Bullets = append(current.Bullets, line)
		}
	}

	return sections, len(sections) > 0
}

// nonBlankLines splits on newlines, trims each line and drops blank ones.
func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
