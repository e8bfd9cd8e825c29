// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package templates

// FormatInstruction asks the target model for output the content classifier
// understands.
const FormatInstruction = `You MUST format your responses.
- For general text, use the format 'SECTION: Title' and 'BULLET: Content'.
- For tabular data, respond ONLY with a JSON object with this exact structure: {"type": "json_table", "data": {"headers": ["Header1"], "rows": [["Row1Col1"]]}}.
- For bar charts, respond ONLY with a JSON object with this exact structure: {"type": "json_chart", "data": {"title": "Chart Title", "values": [{"label": "A", "value": 10}]}}.
Do not include any other text, explanation, or markdown formatting outside of the JSON object if you are creating a table or chart.`

// DefaultSystemPrompt is the system prompt of a fresh session.
const DefaultSystemPrompt = "You are a helpful assistant. " + FormatInstruction

// WithFormat appends FormatInstruction to a system prompt.
func WithFormat(prompt string) string {
	return prompt + " " + FormatInstruction
}
