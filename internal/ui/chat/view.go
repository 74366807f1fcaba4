// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/ui/styles"
)

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	mainWidth := m.mainWidth()
	var blocks []string
	for _, b := range []string{
		m.renderHeader(mainWidth),
		m.viewport.View(),
		m.renderError(mainWidth),
		m.renderAttachments(mainWidth),
		m.theme.InputContainer.Width(mainWidth).Render(m.input.View()),
		m.renderStatusBar(mainWidth),
	} {
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	column := lipgloss.JoinVertical(lipgloss.Left, blocks...)

	if !m.showSidebar() {
		return column
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), column)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	inner := styles.SidebarWidth - m.theme.Sidebar.GetHorizontalPadding()
	focused := m.focus == FocusSidebar

	rows := []string{m.sidebarRow(0, "+ New chat", inner, false)}
	rows = append(rows, m.theme.SidebarHeading.Render("RECENT"))

	convs := m.state.Conversations()
	if len(convs) == 0 {
		rows = append(rows, m.theme.SidebarEmpty.Render("No conversations yet"))
	}
	for i, c := range convs {
		rows = append(rows, m.sidebarRow(i+1, truncateTitle(c.Title, inner-2), inner, c.ID == m.state.ActiveID()))
	}

	height := m.height
	if height < 1 {
		height = 1
	}
	return m.theme.SidebarStyle(focused).Height(height).Render(strings.Join(rows, "\n"))
}

func (m Model) sidebarRow(index int, label string, width int, active bool) string {
	prefix := "  "
	if active {
		prefix = "• "
	}
	text := prefix + label

	switch {
	case m.focus == FocusSidebar && m.sidebarCursor == index:
		return m.theme.SidebarItemSelected.Width(width).Render(text)
	case active:
		return m.theme.SidebarItemActive.Render(text)
	default:
		return m.theme.SidebarItem.Render(text)
	}
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader(width int) string {
	search := m.theme.SearchOff.Render("web search off")
	if m.state.WebSearch() {
		search = m.theme.SearchOn.Render("web search on")
	}

	left := m.theme.HeaderBrand.Render("chatrelay")
	right := m.theme.ModelBadge.Render(m.state.SelectedModelName()) + "  " + search

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - m.theme.Header.GetHorizontalPadding()
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// ERROR AND ATTACHMENTS
// =============================================================================

// renderError shows the failure of the last turn inline.
func (m Model) renderError(width int) string {
	if m.state.Status() != conversation.StatusError {
		return ""
	}
	body := m.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + ErrorIndicatorText)
	if err := m.state.Err(); err != nil {
		body += "\n" + m.theme.ErrorDetail.Render(err.Error())
	}
	return m.theme.ErrorBox.Width(width - m.theme.ErrorBox.GetHorizontalBorderSize()).Render(body)
}

func (m Model) renderAttachments(width int) string {
	atts := m.state.Attachments()
	if len(atts) == 0 {
		return ""
	}
	names := make([]string, len(atts))
	for i, a := range atts {
		names[i] = a.Name
	}
	line := fmt.Sprintf("📎 %s (/detach to clear)", strings.Join(names, ", "))
	return m.theme.AttachmentBadge.Width(width).Render(truncateTitle(line, width))
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar(width int) string {
	var left string
	switch m.state.Status() {
	case conversation.StatusSubmitted:
		left = m.spinner.View() + " Thinking..."
	case conversation.StatusStreaming:
		left = m.spinner.View() + " Streaming..."
	case conversation.StatusError:
		left = styles.RenderError("Failed")
	default:
		left = "Ready"
	}

	if m.notice != "" {
		if m.noticeIsErr {
			left += "  " + m.theme.ErrorTitle.Render(m.notice)
		} else {
			left += "  " + m.theme.Notice.Render(m.notice)
		}
	}

	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(help, "  ")

	if lipgloss.Width(left)+lipgloss.Width(right)+2 > width-m.theme.StatusBar.GetHorizontalPadding() {
		right = ""
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - m.theme.StatusBar.GetHorizontalPadding()
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
