// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is used when stdout is not a terminal.
	DefaultTerminalWidth = 80

	// MinTerminalWidth keeps rendered markdown readable on narrow terminals.
	MinTerminalWidth = 40
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether stdin is interactive.
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether output goes to a terminal.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// GetTerminalWidth returns the stdout width clamped to MinTerminalWidth.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || w <= 0:
		return DefaultTerminalWidth
	case w < MinTerminalWidth:
		return MinTerminalWidth
	}
	return w
}

// TTYRequiredError is returned when an interactive command runs without a
// terminal on stdin.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return "stdin is not a terminal; cannot " + e.Operation
}

// RequiresTTY fails with *TTYRequiredError unless stdin is a terminal.
func RequiresTTY(operation string) error {
	if IsTTY() {
		return nil
	}
	return &TTYRequiredError{Operation: operation}
}

// =============================================================================
// COLOR POLICY
// =============================================================================

var colors struct {
	once    sync.Once
	enabled bool
}

// colorsFor decides whether to emit color. NO_COLOR wins over FORCE_COLOR,
// which wins over terminal detection.
func colorsFor(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty
}

// ColorsEnabled reports the process-wide color decision, made once.
func ColorsEnabled() bool {
	colors.once.Do(func() {
		colors.enabled = colorsFor(os.Getenv, IsStdoutTTY())
	})
	return colors.enabled
}

// forceColors pins the color decision. Tests use it for stable output.
func forceColors(enabled bool) {
	colors.once.Do(func() {})
	colors.enabled = enabled
}

// GetColorProfile returns Ascii when colors are off, otherwise the
// profile termenv detects for stdout.
func GetColorProfile() termenv.Profile {
	if ColorsEnabled() {
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}
