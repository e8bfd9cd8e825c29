// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PromptInjectionKeywords are phrases commonly seen in injection attempts.
var PromptInjectionKeywords = []string{
	"ignore previous instructions",
	"disregard previous instructions",
	"ignore the above",
	"forget the above",
	"ignore your instructions",
	"disregard your instructions",
	"ignore your previous instructions",
	"disregard your previous instructions",
	"ignore all previous instructions",
	"disregard all previous instructions",
	"system prompt",
	"system instructions",
	"secret",
	"confidential",
	"reveal",
	"print your instructions",
	"output your instructions",
	"what are your instructions",
	"repeat the above",
	"translate the above",
	"summarize the above",
	"as a language model",
	"you are a language model",
	"your name is",
	"stop",
	"halt",
	"sudo",
	"developer mode",
	"debug mode",
}

// keywordPattern matches any keyword as a whole word, case-insensitively.
// Longer phrases come first so RE2's leftmost-first alternation prefers
// them over their prefixes.
var keywordPattern = buildKeywordPattern(PromptInjectionKeywords)

func buildKeywordPattern(keywords []string) *regexp.Regexp {
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, k := range sorted {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Span is a run of text, flagged when it is a keyword match.
type Span struct {
	Text    string
	Keyword bool
}

// Highlight splits text into alternating plain and keyword spans.
// Concatenating the spans reproduces text exactly.
func Highlight(text string) []Span {
	if text == "" {
		return nil
	}

	matches := keywordPattern.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			spans = append(spans, Span{Text: text[last:m[0]]})
		}
		spans = append(spans, Span{Text: text[m[0]:m[1]], Keyword: true})
		last = m[1]
	}
	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}
	return spans
}

// DetectKeywords returns the distinct keywords present in text, lowercased,
// in order of first appearance. Text is NFKC-normalized first so full-width
// and compatibility forms ("ｓｕｄｏ") are caught.
func DetectKeywords(text string) []string {
	normalized := norm.NFKC.String(text)

	var found []string
	seen := make(map[string]bool)
	for _, m := range keywordPattern.FindAllString(normalized, -1) {
		k := strings.ToLower(m)
		if !seen[k] {
			seen[k] = true
			found = append(found, k)
		}
	}
	return found
}
