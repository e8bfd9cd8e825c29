// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"regexp"
	"strings"
)

// ReportItem is one bullet of an analysis report. Labeled bullets
// ("Risk Level: High") carry Key and Value; others carry only Text.
type ReportItem struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Text  string `json:"text"`
}

// Labeled reports whether the item is a Key: Value pair.
func (i ReportItem) Labeled() bool {
	return i.Value != ""
}

// ReportSection is a titled group of report items.
type ReportSection struct {
	Title string       `json:"title"`
	Items []ReportItem `json:"items"`
}

var (
	// Models are told not to use markdown but occasionally do.
	markdownNoise = strings.NewReplacer("###", "", "##", "", "#", "", "**", "", "---\n", "")
	listPrefix    = regexp.MustCompile(`^[*-]\s*`)
)

// ParseAnalysisReport groups a SECTION/BULLET analysis report.
//
// Heading hashes, bold markers, horizontal rules and list prefixes are
// stripped first. A repeated SECTION title appends to the earlier group.
// Bullets outside any section are dropped. The result is empty when the
// report contains no SECTION marker.
func ParseAnalysisReport(report string) []ReportSection {
	cleaned := markdownNoise.Replace(report)

	var sections []ReportSection
	index := make(map[string]int)
	current := -1

	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = listPrefix.ReplaceAllString(line, "")

		switch {
		case strings.HasPrefix(line, SectionMarker):
			title := strings.TrimSpace(line[len(SectionMarker):])
			if title == "" {
				current = -1
				continue
			}
			i, ok := index[title]
			if !ok {
				i = len(sections)
				index[title] = i
				sections = append(sections, ReportSection{Title: title, Items: []ReportItem{}})
			}
			current = i
		case strings.HasPrefix(line, BulletMarker):
			if current < 0 {
				continue
			}
			text := strings.TrimSpace(line[len(BulletMarker):])
			sections[current].Items = append(sections[current].Items, newReportItem(text))
		}
	}

	if sections == nil {
		return []ReportSection{}
	}
	return sections
}

// newReportItem splits "Key: Value" at the first colon. A bullet with nothing
// after its colon stays plain.
func newReportItem(text string) ReportItem {
	item := ReportItem{Text: text}
	if key, value, ok := strings.Cut(text, ":"); ok {
		if value = strings.TrimSpace(value); value != "" {
			item.Key = strings.TrimSpace(key)
			item.Value = value
		}
	}
	return item
}
