// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/chatrelay/internal/util"
)

const (
	// DefaultTitle is the title of a conversation without user messages.
	DefaultTitle = "New Chat"

	// MaxTitleLength is the number of characters kept from the first user message.
	MaxTitleLength = 50

	// AttachmentOnlyText is the text submitted when only attachments are present.
	AttachmentOnlyText = "Sent with attachments"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is one sidebar entry: an ordered message list and its title.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewConversation creates an empty conversation with the default title.
func NewConversation(id string, createdAt time.Time) Conversation {
	return Conversation{
		ID:        id,
		Title:     DefaultTitle,
		CreatedAt: createdAt,
	}
}

// WithMessages returns a copy of c holding messages, with the title
// recomputed from the first user message. Recomputing is idempotent.
func (c Conversation) WithMessages(messages []Message) Conversation {
	c.Messages = CloneMessages(messages)
	if first, ok := FirstUserText(c.Messages); ok {
		c.Title = TitleFromText(first)
	}
	return c
}

// =============================================================================
// TITLE RULE
// =============================================================================

// TitleFromText keeps the first MaxTitleLength characters of text and marks
// truncation with "...".
func TitleFromText(text string) string {
	return util.TruncateWithEllipsis(text, MaxTitleLength)
}

// FirstUserText returns the text of the first user message.
func FirstUserText(messages []Message) (string, bool) {
	for _, m := range messages {
		if m.Role == RoleUser {
			return m.Text(), true
		}
	}
	return "", false
}

// CloneMessages copies a message list so the result can be modified freely.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attachment is a file staged alongside user input. Attachments allow an
// otherwise empty submission but are not sent to the relay.
type Attachment struct {
	Name      string
	MediaType string
	Size      int64
}

// SubmissionText returns the text to submit for the given input, or false
// when there is nothing to submit.
func SubmissionText(text string, attachments []Attachment) (string, bool) {
	hasText := strings.TrimSpace(text) != ""
	if !hasText && len(attachments) == 0 {
		return "", false
	}
	if !hasText {
		return AttachmentOnlyText, true
	}
	return text, true
}
