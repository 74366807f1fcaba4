// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit          key.Binding
	NewChat         key.Binding
	FocusSidebar    key.Binding
	Up              key.Binding
	Down            key.Binding
	Select          key.Binding
	Back            key.Binding
	CycleModel      key.Binding
	ToggleWebSearch key.Binding
	ToggleReasoning key.Binding
	ToggleSources   key.Binding
	Copy            key.Binding
	PageUp          key.Binding
	PageDown        key.Binding
	Quit            key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		FocusSidebar: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "conversations"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "tab"),
			key.WithHelp("Esc", "back to input"),
		),
		CycleModel: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "model"),
		),
		ToggleWebSearch: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("C-w", "web search"),
		),
		ToggleReasoning: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reasoning"),
		),
		ToggleSources: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "sources"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewChat, k.FocusSidebar, k.CycleModel, k.Copy, k.Quit}
}

// FullHelp returns all bindings grouped by purpose.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NewChat, k.Copy, k.Quit},
		{k.FocusSidebar, k.Up, k.Down, k.Select, k.Back},
		{k.CycleModel, k.ToggleWebSearch, k.ToggleReasoning, k.ToggleSources},
		{k.PageUp, k.PageDown},
	}
}
