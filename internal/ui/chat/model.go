// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Focus identifies the pane receiving key input.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

const (
	// inputHeight is the number of text rows in the input area.
	inputHeight = 3

	// errorBoxHeight is the height of the inline error: border, title, detail.
	errorBoxHeight = 4

	// minSidebarTotalWidth hides the sidebar on narrow terminals.
	minSidebarTotalWidth = 70
)

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	session *conversation.Session
	state   conversation.State
	ctx     context.Context

	theme *styles.Theme
	keys  KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	spinning bool

	// markdownStyle is passed to glamour; "" selects the terminal's style.
	markdownStyle string
	renderer      *glamour.TermRenderer
	rendererWidth int

	focus         Focus
	sidebarCursor int // 0 is "New chat"; i+1 is conversation i

	showReasoning bool
	showSources   bool

	notice      string
	noticeIsErr bool

	// copyFn writes to the clipboard.
	copyFn func(string) error

	width  int
	height int
	ready  bool
}

// Option configures a Model.
type Option func(*Model)

// WithMarkdownStyle selects a glamour standard style such as "dark" or "notty".
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.markdownStyle = style
	}
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		m.copyFn = fn
	}
}

// WithContext sets the context submitted turns run under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// New creates a chat model over sess.
func New(sess *conversation.Session, theme *styles.Theme, keys KeyMap, opts ...Option) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}

	ta := textarea.New()
	ta.Placeholder = "What would you like to know?"
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		session:  sess,
		state:    sess.State(),
		ctx:      context.Background(),
		theme:    theme,
		keys:     keys,
		viewport: viewport.New(0, 0),
		input:    ta,
		spinner:  sp,
		copyFn:   copyToClipboard,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// State returns the snapshot the model is rendering.
func (m Model) State() conversation.State {
	return m.state
}

// Focus returns the pane receiving key input.
func (m Model) Focus() Focus {
	return m.focus
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}
