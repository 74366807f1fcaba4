// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInFlight is returned when submitting while a turn is outstanding.
	ErrTurnInFlight = errors.New("a response is still in progress")

	// ErrUnknownModel is returned when selecting a model that is not offered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrTurnTimeout marks a turn that did not complete within the session timeout.
	ErrTurnTimeout = errors.New("response timed out")
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the state of the current turn.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitted
	StatusStreaming
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitted:
		return "submitted"
	case StatusStreaming:
		return "streaming"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// InFlight returns true while a turn is outstanding.
func (s Status) InFlight() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// =============================================================================
// STATE
// =============================================================================

// pendingTurn identifies the outstanding turn.
type pendingTurn struct {
	conversationID string
	assistantID    string // empty until the first chunk
}

// State is an immutable snapshot of the chat client.
//
// The zero value has no models configured; use NewState.
type State struct {
	conversations []model.Conversation // newest first
	activeID      string
	messages      []model.Message

	input       string
	attachments []model.Attachment

	models        []model.ModelOption
	selectedModel string
	webSearch     bool

	status  Status
	err     error
	pending *pendingTurn

	version uint64
}

// NewState creates an empty state offering models, with defaultModel selected.
// An unknown defaultModel selects the first option.
func NewState(models []model.ModelOption, defaultModel string) State {
	if len(models) == 0 {
		models = model.DefaultModelOptions()
	}
	s := State{models: append([]model.ModelOption(nil), models...)}
	if opt, ok := model.FindModelOption(s.models, defaultModel); ok {
		s.selectedModel = opt.Value
	} else {
		s.selectedModel = s.models[0].Value
	}
	return s
}

// lastConversationID holds the last id's millisecond value for the process.
var lastConversationID atomic.Int64

// nextConversationID returns "chat-<millis>", strictly increasing for the
// process lifetime even when called twice within one millisecond.
func nextConversationID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		last := lastConversationID.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastConversationID.CompareAndSwap(last, next) {
			return fmt.Sprintf("chat-%d", next)
		}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversations returns the sidebar list, newest first.
func (s State) Conversations() []model.Conversation {
	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		c.Messages = model.CloneMessages(c.Messages)
		out[i] = c
	}
	return out
}

// Conversation returns the stored conversation with id.
func (s State) Conversation(id string) (model.Conversation, bool) {
	if i := s.indexOf(id); i >= 0 {
		c := s.conversations[i]
		c.Messages = model.CloneMessages(c.Messages)
		return c, true
	}
	return model.Conversation{}, false
}

// ActiveID returns the active conversation id, or "" when none is selected.
func (s State) ActiveID() string { return s.activeID }

// Messages returns the active message list.
func (s State) Messages() []model.Message { return model.CloneMessages(s.messages) }

// Input returns the pending input text.
func (s State) Input() string { return s.input }

// Attachments returns the staged attachments.
func (s State) Attachments() []model.Attachment {
	return append([]model.Attachment(nil), s.attachments...)
}

// Models returns the offered models.
func (s State) Models() []model.ModelOption {
	return append([]model.ModelOption(nil), s.models...)
}

// SelectedModel returns the selected model identifier.
func (s State) SelectedModel() string { return s.selectedModel }

// SelectedModelName returns the display name of the selected model.
func (s State) SelectedModelName() string {
	if opt, ok := model.FindModelOption(s.models, s.selectedModel); ok {
		return opt.Name
	}
	return s.selectedModel
}

// WebSearch returns whether web search is requested.
func (s State) WebSearch() bool { return s.webSearch }

// Status returns the turn status.
func (s State) Status() Status { return s.status }

// Err returns the error of the last failed turn.
func (s State) Err() error { return s.err }

// PendingConversationID returns the conversation the outstanding turn writes
// to, or "" when idle.
func (s State) PendingConversationID() string {
	if s.pending == nil {
		return ""
	}
	return s.pending.conversationID
}

// Version increases with every change applied through a Session.
func (s State) Version() uint64 { return s.version }

// LastAssistantText returns the last text part of the newest assistant
// message in the active list.
func (s State) LastAssistantText() (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == model.RoleAssistant {
			return s.messages[i].LastText()
		}
	}
	return "", false
}

// =============================================================================
// CONVERSATION TRANSITIONS
// =============================================================================

// CreateConversation adds a new empty conversation at the front of the
// sidebar and makes it active. The active list, input, and attachments are
// cleared.
func (s State) CreateConversation(now time.Time) State {
	conv := model.NewConversation(nextConversationID(now), now)

	convs := make([]model.Conversation, 0, len(s.conversations)+1)
	convs = append(convs, conv)
	s.conversations = append(convs, s.conversations...)

	s.activeID = conv.ID
	s.messages = nil
	s.input = ""
	s.attachments = nil
	return s
}

// SwitchConversation makes id active and shows its stored messages. An
// unknown id leaves the state unchanged.
func (s State) SwitchConversation(id string) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	s.activeID = id
	s.messages = model.CloneMessages(s.conversations[i].Messages)
	return s
}

// =============================================================================
// TURN TRANSITIONS
// =============================================================================

// SubmitTurn appends a user message to the active conversation and returns
// the payload to send. Empty text without attachments is a no-op and returns
// a nil payload. While a turn is outstanding ErrTurnInFlight is returned.
// When no conversation is active one is created first.
func (s State) SubmitTurn(text string, attachments []model.Attachment, now time.Time) (State, *model.RequestPayload, error) {
	body, ok := model.SubmissionText(text, attachments)
	if !ok {
		return s, nil, nil
	}
	if s.status.InFlight() {
		return s, nil, ErrTurnInFlight
	}

	if s.indexOf(s.activeID) < 0 {
		s = s.CreateConversation(now)
	}

	msgs := append(model.CloneMessages(s.messages), model.NewUserMessage(body))
	s = s.syncConversation(s.activeID, msgs)

	s.input = ""
	s.attachments = nil
	s.status = StatusSubmitted
	s.err = nil
	s.pending = &pendingTurn{conversationID: s.activeID}

	payload := model.NewRequestPayload(msgs, s.selectedModel, s.webSearch)
	return s, &payload, nil
}

// ApplyChunk appends streamed text to the assistant message of the turn
// submitted on convID. The first chunk creates that message. Chunks for a
// conversation without an outstanding turn are ignored.
func (s State) ApplyChunk(convID, chunk string) State {
	if !s.pendingFor(convID) || chunk == "" {
		return s
	}
	i := s.indexOf(convID)
	if i < 0 {
		return s
	}

	msgs := model.CloneMessages(s.conversations[i].Messages)
	pending := *s.pending

	if pending.assistantID == "" {
		msg := model.NewAssistantMessage().AppendText(chunk)
		pending.assistantID = msg.ID
		msgs = append(msgs, msg)
	} else {
		j := indexOfMessage(msgs, pending.assistantID)
		if j < 0 {
			return s
		}
		msgs[j] = msgs[j].AppendText(chunk)
	}

	s = s.syncConversation(convID, msgs)
	s.pending = &pending
	s.status = StatusStreaming
	return s
}

// CompleteTurn ends the turn on convID normally.
func (s State) CompleteTurn(convID string) State {
	if !s.pendingFor(convID) {
		return s
	}
	s.pending = nil
	s.status = StatusIdle
	s.err = nil
	return s
}

// FailTurn ends the turn on convID with err. Streamed output is kept.
func (s State) FailTurn(convID string, err error) State {
	if !s.pendingFor(convID) {
		return s
	}
	s.pending = nil
	s.status = StatusError
	s.err = err
	return s
}

// =============================================================================
// INPUT TRANSITIONS
// =============================================================================

// SetInput replaces the pending input text.
func (s State) SetInput(text string) State {
	s.input = text
	return s
}

// AddAttachment stages an attachment for the next submission.
func (s State) AddAttachment(a model.Attachment) State {
	s.attachments = append(append([]model.Attachment(nil), s.attachments...), a)
	return s
}

// ClearAttachments drops all staged attachments.
func (s State) ClearAttachments() State {
	s.attachments = nil
	return s
}

// SelectModel selects one of the offered models.
func (s State) SelectModel(value string) (State, error) {
	opt, ok := model.FindModelOption(s.models, value)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownModel, value)
	}
	s.selectedModel = opt.Value
	return s, nil
}

// CycleModel selects the next offered model, wrapping around.
func (s State) CycleModel() State {
	if opt, ok := model.NextModelOption(s.models, s.selectedModel); ok {
		s.selectedModel = opt.Value
	}
	return s
}

// ToggleWebSearch flips the web search flag.
func (s State) ToggleWebSearch() State {
	s.webSearch = !s.webSearch
	return s
}

// =============================================================================
// HELPERS
// =============================================================================

// syncConversation stores msgs as the message list of convID and recomputes
// its title. The active list follows when convID is active.
func (s State) syncConversation(convID string, msgs []model.Message) State {
	i := s.indexOf(convID)
	if i < 0 {
		return s
	}
	convs := make([]model.Conversation, len(s.conversations))
	copy(convs, s.conversations)
	convs[i] = convs[i].WithMessages(msgs)
	s.conversations = convs

	if convID == s.activeID {
		s.messages = model.CloneMessages(msgs)
	}
	return s
}

func (s State) pendingFor(convID string) bool {
	return s.pending != nil && s.pending.conversationID == convID
}

func (s State) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexOfMessage(msgs []model.Message, id string) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}
