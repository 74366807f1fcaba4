// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	// LabelStyle is used for left-aligned field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle marks OK statuses
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle marks failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle marks placeholders and other soft failures
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderStatus renders a bracketed status tag.
// status is one of "ok", "fail", "warn"; anything else renders dimmed.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok":
		return RenderConditional(SuccessStyle, "[OK]")
	case "fail":
		return RenderConditional(ErrorStyle, "[FAIL]")
	case "warn":
		return RenderConditional(WarningStyle, "[WARN]")
	default:
		return RenderConditional(DimStyle, "["+strings.ToUpper(status)+"]")
	}
}

// RenderLabel renders a label padded to the label column.
func RenderLabel(label string) string {
	return RenderConditional(LabelStyle, label)
}

// RenderConditional renders text with style if colors are enabled,
// otherwise returns the text unmodified.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		if w := style.GetWidth(); w > 0 {
			return lipgloss.NewStyle().Width(w).Render(text)
		}
		return text
	}
	return style.Render(text)
}
