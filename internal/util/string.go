// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TruncateWithEllipsis keeps the first maxRunes characters of s and appends
// Ellipsis when anything was cut. Strings that fit are returned unchanged.
func TruncateWithEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + Ellipsis
}

// FitWidth truncates s to at most width terminal columns, using a single
// "…" as the tail when cut. Double-width characters count as two columns.
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// PadWidth right-pads s with spaces to exactly width columns, truncating first
// when needed.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(FitWidth(s, width), width)
}

// RuneLen returns the number of runes (characters) in a string.
func RuneLen(s string) int {
	return len([]rune(s))
}
