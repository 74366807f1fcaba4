// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrelay/internal/model"
	"github.com/jeranaias/chatrelay/internal/util"
)

// EmptyStateText is shown when the active conversation has no messages.
const EmptyStateText = "How can I help you today?"

// ErrorIndicatorText heads the inline error shown after a failed turn.
const ErrorIndicatorText = "Error: Failed to get response. Please check your OpenAI API key configuration."

// refreshViewport re-renders the active messages into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.Height = m.viewportHeight()
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages(m.state.Messages(), m.viewport.Width))
	if atBottom || m.state.Status().InFlight() {
		m.viewport.GotoBottom()
	}
}

// renderMessages renders the message list, or the empty state.
func (m *Model) renderMessages(msgs []model.Message, width int) string {
	if len(msgs) == 0 {
		return lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			m.theme.EmptyState.Render(EmptyStateText))
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage renders one message. Sources are grouped above the text.
func (m *Model) renderMessage(msg model.Message, width int) string {
	var b strings.Builder

	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render("You"))
	case model.RoleAssistant:
		b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
	default:
		b.WriteString(m.theme.SystemLabel.Render(msg.Role.DisplayName()))
	}
	b.WriteString("\n")

	if msg.Role == model.RoleAssistant {
		if sources := msg.Sources(); len(sources) > 0 {
			b.WriteString(m.renderSources(sources))
			b.WriteString("\n")
		}
	}

	var body []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case model.TextPart:
			body = append(body, m.renderText(msg.Role, p.Text, width))
		case model.ReasoningPart:
			body = append(body, m.renderReasoning(p, width))
		case model.SourceURLPart:
			// grouped above
		default:
			body = append(body, m.theme.ErrorDetail.Render(fmt.Sprintf("[unsupported part %s]", part.Type())))
		}
	}
	b.WriteString(strings.Join(body, "\n"))
	return b.String()
}

// renderText renders a text part. Assistant text is markdown.
func (m *Model) renderText(role model.Role, text string, width int) string {
	switch role {
	case model.RoleUser:
		return m.theme.UserText.Width(width - 2).Render(text)
	case model.RoleAssistant:
		return m.theme.AssistantBlock.Render(m.renderMarkdown(text, width-2))
	default:
		return m.theme.SystemText.Width(width).Render(text)
	}
}

// renderReasoning renders a collapsible reasoning panel.
func (m *Model) renderReasoning(p model.ReasoningPart, width int) string {
	if !m.showReasoning {
		return m.theme.PanelToggle.Render("▸ Reasoning (ctrl+r)")
	}
	return m.theme.PanelToggle.Render("▾ Reasoning") + "\n" +
		m.theme.ReasoningBody.Width(width-2).Render(p.Text)
}

// renderSources renders the collapsible source list.
func (m *Model) renderSources(sources []model.SourceURLPart) string {
	header := SourcesLabel(len(sources))
	if !m.showSources {
		return m.theme.PanelToggle.Render("▸ " + header + " (ctrl+s)")
	}
	lines := []string{m.theme.PanelToggle.Render("▾ " + header)}
	for _, s := range sources {
		label := s.URL
		if s.Title != "" {
			label = s.Title + " - " + s.URL
		}
		lines = append(lines, "  "+m.theme.SourceItem.Render(label))
	}
	return strings.Join(lines, "\n")
}

// SourcesLabel returns the collapsed header of a source list.
func SourcesLabel(n int) string {
	if n == 1 {
		return "Used 1 source"
	}
	return fmt.Sprintf("Used %d sources", n)
}

// renderMarkdown renders markdown with glamour, rebuilding the renderer when
// the width changes. It falls back to plain text on failure.
func (m *Model) renderMarkdown(text string, width int) string {
	if width < 20 {
		width = 20
	}
	if m.renderer == nil || m.rendererWidth != width {
		style := glamour.WithAutoStyle()
		if m.markdownStyle != "" {
			style = glamour.WithStandardStyle(m.markdownStyle)
		}
		r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
		if err != nil {
			return text
		}
		m.renderer = r
		m.rendererWidth = width
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// truncateTitle fits a sidebar title to width.
func truncateTitle(title string, width int) string {
	return util.FitWidth(title, width)
}

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}
