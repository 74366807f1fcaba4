// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrelay/internal/conversation"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		return m.applyState(msg.State)

	case TurnDoneMsg:
		if msg.Err != nil {
			log.Printf("CHAT_TURN_ERROR | conversation=%s error=%v", msg.ConversationID, msg.Err)
		}
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			m.setNotice("Copy failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice(fmt.Sprintf("Copied %d characters", msg.Chars), false)
		}
		return m, nil

	case NoticeMsg:
		m.setNotice(msg.Text, msg.IsErr)
		return m, nil

	case spinner.TickMsg:
		if !m.state.Status().InFlight() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// STATE
// =============================================================================

// applyState adopts a session snapshot. Snapshots older than the current one
// are dropped because they may be delivered out of order.
func (m Model) applyState(st conversation.State) (tea.Model, tea.Cmd) {
	if st.Version() < m.state.Version() {
		return m, nil
	}
	m.state = st
	m.clampCursor()
	m.refreshViewport()

	if st.Status().InFlight() && !m.spinning {
		m.spinning = true
		return m, m.spinner.Tick
	}
	return m, nil
}

// sync pulls the latest snapshot directly from the session.
func (m *Model) sync() {
	if st := m.session.State(); st.Version() >= m.state.Version() {
		m.state = st
	}
	m.clampCursor()
	m.refreshViewport()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	main := m.mainWidth()
	m.input.SetWidth(main)
	m.viewport.Width = main
	m.viewport.Height = m.viewportHeight()
	m.refreshViewport()
	return m, nil
}

// showSidebar reports whether the sidebar fits.
func (m Model) showSidebar() bool {
	return m.width >= minSidebarTotalWidth
}

// mainWidth is the width of the conversation column.
func (m Model) mainWidth() int {
	w := m.width
	if m.showSidebar() {
		w -= m.theme.Sidebar.GetWidth() + m.theme.Sidebar.GetHorizontalBorderSize()
	}
	if w < 10 {
		w = 10
	}
	return w
}

// viewportHeight is the height left for messages after the fixed rows.
func (m Model) viewportHeight() int {
	// header, input border and rows, status bar
	h := m.height - 1 - (1 + inputHeight) - 1
	if len(m.state.Attachments()) > 0 {
		h--
	}
	if m.state.Status() == conversation.StatusError {
		h -= errorBoxHeight
	}
	if h < 1 {
		h = 1
	}
	return h
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// Global bindings.
	switch {
	case key.Matches(msg, m.keys.NewChat):
		m.session.CreateConversation()
		m.input.Reset()
		m.focus = FocusInput
		m.input.Focus()
		m.sidebarCursor = 1
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.CycleModel):
		m.session.Update(func(s conversation.State) conversation.State { return s.CycleModel() })
		m.sync()
		m.setNotice("Model: "+m.state.SelectedModelName(), false)
		return m, nil

	case key.Matches(msg, m.keys.ToggleWebSearch):
		m.session.Update(func(s conversation.State) conversation.State { return s.ToggleWebSearch() })
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.ToggleReasoning):
		m.showReasoning = !m.showReasoning
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSources):
		m.showSources = !m.showSources
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.sidebarCursor > 0 {
			m.sidebarCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.sidebarCursor < len(m.state.Conversations()) {
			m.sidebarCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.sidebarCursor == 0 {
			m.session.CreateConversation()
			m.input.Reset()
			m.sidebarCursor = 1
		} else {
			convs := m.state.Conversations()
			m.session.SwitchConversation(convs[m.sidebarCursor-1].ID)
		}
		m.focus = FocusInput
		m.input.Focus()
		m.sync()
	case key.Matches(msg, m.keys.Back):
		m.focus = FocusInput
		m.input.Focus()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusSidebar):
		m.focus = FocusSidebar
		m.input.Blur()
		m.sidebarCursor = m.activeCursor()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit sends the input as a new turn or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if cmd, ok := parseCommand(text); ok {
		m.input.Reset()
		return m.runCommand(cmd)
	}

	m.session.Update(func(s conversation.State) conversation.State { return s.SetInput(text) })
	turn, err := m.session.Submit(m.ctx, text, m.session.State().Attachments())
	if err != nil {
		if errors.Is(err, conversation.ErrTurnInFlight) {
			m.setNotice("Wait for the current response to finish", true)
		} else {
			m.setNotice(err.Error(), true)
		}
		return m, nil
	}
	if turn == nil {
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.sync()

	cmds := []tea.Cmd{waitForTurn(turn)}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// waitForTurn reports the end of turn to the program.
func waitForTurn(turn *conversation.Turn) tea.Cmd {
	return func() tea.Msg {
		err := turn.Wait()
		return TurnDoneMsg{ConversationID: turn.ConversationID, Err: err}
	}
}

// copyLastReply copies the newest assistant text to the clipboard.
func (m Model) copyLastReply() tea.Cmd {
	text, ok := m.state.LastAssistantText()
	if !ok || strings.TrimSpace(text) == "" {
		return func() tea.Msg { return NoticeMsg{Text: "Nothing to copy", IsErr: true} }
	}
	copyFn := m.copyFn
	return func() tea.Msg {
		return CopiedMsg{Chars: len([]rune(text)), Err: copyFn(text)}
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

// activeCursor is the sidebar row of the active conversation.
func (m Model) activeCursor() int {
	for i, c := range m.state.Conversations() {
		if c.ID == m.state.ActiveID() {
			return i + 1
		}
	}
	return 0
}

func (m *Model) clampCursor() {
	if n := len(m.state.Conversations()); m.sidebarCursor > n {
		m.sidebarCursor = n
	}
}
