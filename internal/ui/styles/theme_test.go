// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	if got := theme.Sidebar.GetWidth(); got != SidebarWidth {
		t.Errorf("Sidebar width = %d, want %d", got, SidebarWidth)
	}
	if theme.SidebarStyle(true).GetBorderRightForeground() == theme.SidebarStyle(false).GetBorderRightForeground() {
		t.Error("focused sidebar should use a different border color")
	}
}

func TestStatusIndicators(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		marker string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("hello")
			if !strings.Contains(out, tt.marker) || !strings.Contains(out, "hello") {
				t.Errorf("render = %q, want marker %q and message", out, tt.marker)
			}
		})
	}

	if out := RenderStatus(false, "x"); !strings.Contains(out, StatusIndicators.Error) {
		t.Errorf("RenderStatus(false) = %q", out)
	}
}

func TestAdaptiveColorsDefined(t *testing.T) {
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Purple": Purple, "Cyan": Cyan, "Emerald": Emerald, "Rose": Rose, "Amber": Amber,
		"TextPrimary": TextPrimary, "TextMuted": TextMuted, "LinkColor": LinkColor,
	} {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s missing a light or dark value", name)
		}
	}
}
