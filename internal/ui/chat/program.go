// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/ui/styles"
)

// NewProgram creates a full-screen program over sess and subscribes it to the
// session's changes.
func NewProgram(sess *conversation.Session, theme *styles.Theme, keys KeyMap, opts ...Option) *tea.Program {
	p := tea.NewProgram(New(sess, theme, keys, opts...), tea.WithAltScreen())

	// Send blocks until the event loop receives the message, and the event
	// loop itself calls into the session, so deliver from a new goroutine.
	// StateMsg carries a version so late deliveries are dropped.
	sess.SetOnChange(func(s conversation.State) {
		go p.Send(StateMsg{State: s})
	})
	return p
}
