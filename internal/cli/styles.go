// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for every command.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set;
// FORCE_COLOR overrides detection.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// PALETTE
// =============================================================================

var (
	Purple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	Cyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	Rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	Amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	Muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	// SectionStyle is used for section headers within output
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple)

	// LabelStyle is used for left-aligned field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(18)

	ValueStyle   = lipgloss.NewStyle()
	SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Amber)
	DimStyle     = lipgloss.NewStyle().Foreground(Muted)
	InfoStyle    = lipgloss.NewStyle().Foreground(Cyan)

	// PromptStyle renders the REPL prompt.
	PromptStyle = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// AttackerStyle and TargetStyle label the two sides of a session.
	AttackerStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	TargetStyle   = lipgloss.NewStyle().Foreground(Emerald).Bold(true)

	// KeywordStyle marks prompt-injection phrases in user text.
	KeywordStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true).
			Underline(true)

	// BarStyle fills chart bars.
	BarStyle = lipgloss.NewStyle().Foreground(Cyan)

	// TableHeaderStyle renders table header cells.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule of width w (default 60).
func RenderSeparator(w int) string {
	if w <= 0 {
		w = 60
	}
	return DimStyle.Render(strings.Repeat("─", w))
}

// RenderStatus renders a bracketed status tag.
func RenderStatus(ok bool) string {
	if ok {
		return SuccessStyle.Render("[OK]")
	}
	return ErrorStyle.Render("[FAIL]")
}

// RenderLabel renders a label padded to the shared label width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
