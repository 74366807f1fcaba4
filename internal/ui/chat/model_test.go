// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/model"
	"github.com/jeranaias/chatrelay/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type scriptedStreamer struct {
	chunks []string
	err    error
}

func (s *scriptedStreamer) Stream(ctx context.Context, payload model.RequestPayload, onChunk func(string)) error {
	for _, c := range s.chunks {
		onChunk(c)
	}
	return s.err
}

type fakeClipboard struct {
	text string
}

func (f *fakeClipboard) write(s string) error {
	f.text = s
	return nil
}

func newTestModel(t *testing.T, streamer conversation.Streamer) (Model, *conversation.Session, *fakeClipboard) {
	t.Helper()
	sess := conversation.NewSession(
		conversation.NewState(model.DefaultModelOptions(), "openai/gpt-4o"),
		streamer,
	)
	clip := &fakeClipboard{}
	m := New(sess, styles.NewTheme(), DefaultKeyMap(),
		WithMarkdownStyle("notty"),
		WithClipboard(clip.write),
	)
	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 50})
	return m, sess, clip
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// waitIdle waits for the session's turn to end and delivers the snapshot.
func waitIdle(t *testing.T, m Model, sess *conversation.Session) Model {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for sess.State().Status().InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("turn did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return update(t, m, StateMsg{State: sess.State()})
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestView_EmptyState(t *testing.T) {
	m, _, _ := newTestModel(t, &scriptedStreamer{})
	view := m.View()

	for _, want := range []string{EmptyStateText, "No conversations yet", "New chat", "GPT 4o", "web search off"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_BeforeResize(t *testing.T) {
	sess := conversation.NewSession(conversation.NewState(nil, ""), &scriptedStreamer{})
	m := New(sess, styles.NewTheme(), DefaultKeyMap())
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestSubmit_StreamsReply(t *testing.T) {
	m, sess, _ := newTestModel(t, &scriptedStreamer{chunks: []string{"Hi ", "there"}})

	m = typeText(t, m, "hello")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("submit should return a command")
	}
	if m.Input() != "" {
		t.Errorf("input = %q, want cleared", m.Input())
	}

	m = waitIdle(t, m, sess)
	st := m.State()
	if len(st.Messages()) != 2 {
		t.Fatalf("messages = %d, want 2", len(st.Messages()))
	}

	view := m.View()
	for _, want := range []string{"hello", "Hi there", "Ready"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, EmptyStateText) {
		t.Error("empty state shown with messages")
	}
}

func TestSubmit_EmptyIsNoop(t *testing.T) {
	m, sess, _ := newTestModel(t, &scriptedStreamer{})
	before := sess.State().Version()

	m = typeText(t, m, "   ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if n := len(sess.State().Messages()); n != 0 {
		t.Errorf("messages = %d, want 0", n)
	}
	if sess.State().Status() != conversation.StatusIdle {
		t.Error("status changed on empty submit")
	}
	// SetInput is the only change an empty submit publishes.
	if got := sess.State().Version(); got > before+1 {
		t.Errorf("version = %d, want at most %d", got, before+1)
	}
	_ = m
}

func TestSubmit_ErrorIndicator(t *testing.T) {
	m, sess, _ := newTestModel(t, &scriptedStreamer{
		chunks: []string{"partial"},
		err:    errors.New("relay returned HTTP 500: OPENAI_API_KEY environment variable is not set"),
	})

	m = typeText(t, m, "hello")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = waitIdle(t, m, sess)

	if m.State().Status() != conversation.StatusError {
		t.Fatalf("status = %v, want error", m.State().Status())
	}
	view := m.View()
	for _, want := range []string{"Failed to get response", "OPENAI_API_KEY", "partial"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func TestNewChatAndSwitch(t *testing.T) {
	m, sess, _ := newTestModel(t, &scriptedStreamer{chunks: []string{"ok"}})

	m = typeText(t, m, "first topic")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = waitIdle(t, m, sess)
	first := m.State().ActiveID()

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	second := m.State().ActiveID()
	if second == first || second == "" {
		t.Fatalf("ctrl+n did not create a conversation: %q", second)
	}
	if len(m.State().Messages()) != 0 {
		t.Error("new conversation should be empty")
	}
	if !strings.Contains(m.View(), "first topic") {
		t.Error("sidebar should list the first conversation's title")
	}

	// Sidebar rows: 0 New chat, 1 second (newest), 2 first.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Focus() != FocusSidebar {
		t.Fatal("tab should focus the sidebar")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.State().ActiveID() != first {
		t.Errorf("active = %s, want %s", m.State().ActiveID(), first)
	}
	if m.Focus() != FocusInput {
		t.Error("selecting a conversation should return focus to the input")
	}
	if len(m.State().Messages()) != 2 {
		t.Errorf("messages = %d, want stored list of 2", len(m.State().Messages()))
	}
}

func TestSidebar_NewChatRow(t *testing.T) {
	m, _, _ := newTestModel(t, &scriptedStreamer{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.State().Conversations()) != 1 {
		t.Errorf("conversations = %d, want 1", len(m.State().Conversations()))
	}
}

// =============================================================================
// TOGGLE TESTS
// =============================================================================

func TestCycleModelAndWebSearch(t *testing.T) {
	m, _, _ := newTestModel(t, &scriptedStreamer{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.State().SelectedModel() != "deepseek/deepseek-r1" {
		t.Errorf("model = %q", m.State().SelectedModel())
	}
	if !strings.Contains(m.View(), "Deepseek R1") {
		t.Error("header should show the selected model")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	if !m.State().WebSearch() {
		t.Error("ctrl+w should enable web search")
	}
	if !strings.Contains(m.View(), "web search on") {
		t.Error("header should show web search on")
	}
}

func TestCopyLastReply(t *testing.T) {
	m, sess, clip := newTestModel(t, &scriptedStreamer{chunks: []string{"copy me"}})

	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if msg, ok := cmd().(NoticeMsg); !ok || !msg.IsErr {
		t.Errorf("copy with no reply = %#v, want error notice", msg)
	}

	m = typeText(t, m, "hi")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = waitIdle(t, m, sess)

	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	msg := cmd()
	copied, ok := msg.(CopiedMsg)
	if !ok || copied.Err != nil || copied.Chars != 7 {
		t.Fatalf("copy = %#v", msg)
	}
	if clip.text != "copy me" {
		t.Errorf("clipboard = %q, want %q", clip.text, "copy me")
	}

	m = update(t, m, copied)
	if !strings.Contains(m.View(), "Copied 7 characters") {
		t.Error("copy notice not shown")
	}
}

func TestStaleStateIgnored(t *testing.T) {
	m, sess, _ := newTestModel(t, &scriptedStreamer{})
	old := sess.State()

	sess.CreateConversation()
	m = update(t, m, StateMsg{State: sess.State()})
	m = update(t, m, StateMsg{State: old})

	if m.State().ActiveID() == "" {
		t.Error("stale snapshot replaced a newer one")
	}
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		name  string
		arg   string
	}{
		{"/attach notes.txt", true, "attach", "notes.txt"},
		{"  /detach  ", true, "detach", ""},
		{"/model deepseek/deepseek-r1", true, "model", "deepseek/deepseek-r1"},
		{"/unknown", false, "", ""},
		{"/", false, "", ""},
		{"hello /attach", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, ok := parseCommand(tt.input)
			if ok != tt.ok || c.name != tt.name || c.arg != tt.arg {
				t.Errorf("parseCommand(%q) = %+v, %v", tt.input, c, ok)
			}
		})
	}
}

func TestAttachThenSubmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	m, sess, _ := newTestModel(t, &scriptedStreamer{chunks: []string{"got it"}})
	m = typeText(t, m, "/attach "+path)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	atts := m.State().Attachments()
	if len(atts) != 1 || atts[0].Name != "notes.txt" || atts[0].Size != 4 {
		t.Fatalf("attachments = %+v", atts)
	}
	if !strings.Contains(m.View(), "notes.txt") {
		t.Error("attachment not shown")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = waitIdle(t, m, sess)

	msgs := m.State().Messages()
	if len(msgs) == 0 || msgs[0].Text() != model.AttachmentOnlyText {
		t.Errorf("first message = %+v, want %q", msgs, model.AttachmentOnlyText)
	}
	if len(m.State().Attachments()) != 0 {
		t.Error("attachments should be cleared after submit")
	}
}

func TestAttachMissingFile(t *testing.T) {
	m, _, _ := newTestModel(t, &scriptedStreamer{})
	m = typeText(t, m, "/attach /does/not/exist")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.State().Attachments()) != 0 {
		t.Error("missing file should not be attached")
	}
	if !strings.Contains(m.View(), "cannot attach") {
		t.Error("error notice not shown")
	}
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestRenderMessage_Panels(t *testing.T) {
	m, _, _ := newTestModel(t, &scriptedStreamer{})
	msg := model.NewMessage(model.RoleAssistant,
		model.SourceURLPart{URL: "https://example.com/a"},
		model.ReasoningPart{Text: "thinking it over"},
		model.TextPart{Text: "final answer"},
	)

	out := m.renderMessage(msg, 120)
	if !strings.Contains(out, "Used 1 source") || strings.Contains(out, "https://example.com/a") {
		t.Errorf("collapsed sources wrong:\n%s", out)
	}
	if strings.Contains(out, "thinking it over") {
		t.Error("reasoning should be collapsed by default")
	}
	if !strings.Contains(out, "final answer") {
		t.Error("text missing")
	}
	if strings.Index(out, "Used 1 source") > strings.Index(out, "final answer") {
		t.Error("sources should render above the text")
	}

	m.showSources = true
	m.showReasoning = true
	out = m.renderMessage(msg, 120)
	if !strings.Contains(out, "https://example.com/a") || !strings.Contains(out, "thinking it over") {
		t.Errorf("expanded panels wrong:\n%s", out)
	}
}

func TestSourcesLabel(t *testing.T) {
	if got := SourcesLabel(1); got != "Used 1 source" {
		t.Errorf("SourcesLabel(1) = %q", got)
	}
	if got := SourcesLabel(3); got != "Used 3 sources" {
		t.Errorf("SourcesLabel(3) = %q", got)
	}
}
