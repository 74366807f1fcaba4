// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SidebarWidth is the fixed width of the conversation sidebar.
const SidebarWidth = 28

// Theme holds the styles of the chat interface.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	ModelBadge  lipgloss.Style
	SearchOn    lipgloss.Style
	SearchOff   lipgloss.Style

	// Sidebar
	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarHeading      lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarEmpty        lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserText       lipgloss.Style
	SystemText     lipgloss.Style
	AssistantBlock lipgloss.Style
	PanelToggle    lipgloss.Style
	ReasoningBody  lipgloss.Style
	SourceItem     lipgloss.Style
	EmptyState     lipgloss.Style

	// Input
	InputContainer   lipgloss.Style
	AttachmentBadge  lipgloss.Style
	InputPlaceholder lipgloss.Style

	// Status
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorDetail  lipgloss.Style
	Notice       lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ModelBadge = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.SearchOn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.SearchOff = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		Width(SidebarWidth).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarFocused = t.Sidebar.
		BorderForeground(Cyan)

	t.SidebarHeading = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		MarginTop(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Background(SelectionBg).
		Foreground(TextPrimary)

	t.SidebarEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.SystemLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.UserText = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.SystemText = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		Italic(true)

	t.AssistantBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder)

	t.PanelToggle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.ReasoningBody = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)

	t.SourceItem = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		Align(lipgloss.Center)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)

	t.AttachmentBadge = lipgloss.NewStyle().
		Foreground(Amber)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ErrorDetail = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)
}

// SidebarStyle returns the sidebar container style for the focus state.
func (t *Theme) SidebarStyle(focused bool) lipgloss.Style {
	if focused {
		return t.SidebarFocused
	}
	return t.Sidebar
}
